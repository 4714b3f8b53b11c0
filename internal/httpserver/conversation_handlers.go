package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"chatcore/internal/domain"
	"chatcore/internal/service"
)

type settingRequest struct {
	Value bool `json:"value"`
}

func handleSetSetting(
	convs *service.ConversationService,
	apply func(*service.ConversationService, *http.Request, int64, int64, bool) error,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid conversation id", http.StatusBadRequest)
			return
		}
		var req settingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		userID := CurrentUserID(r)
		if err := apply(convs, r, conversationID, userID, req.Value); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversation_id": conversationID, "value": req.Value})
	}
}

func handlePin(convs *service.ConversationService) http.HandlerFunc {
	return handleSetSetting(convs, func(s *service.ConversationService, r *http.Request, cid, uid int64, v bool) error {
		return s.SetPinned(r.Context(), cid, uid, v)
	})
}

func handleArchive(convs *service.ConversationService) http.HandlerFunc {
	return handleSetSetting(convs, func(s *service.ConversationService, r *http.Request, cid, uid int64, v bool) error {
		return s.SetArchived(r.Context(), cid, uid, v)
	})
}

func handleDnd(convs *service.ConversationService) http.HandlerFunc {
	return handleSetSetting(convs, func(s *service.ConversationService, r *http.Request, cid, uid int64, v bool) error {
		return s.SetDnd(r.Context(), cid, uid, v)
	})
}

func handleBlock(convs *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid conversation id", http.StatusBadRequest)
			return
		}
		if err := convs.Block(r.Context(), conversationID, CurrentUserID(r)); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversation_id": conversationID, "blocked": true})
	}
}

func handleUnblock(convs *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid conversation id", http.StatusBadRequest)
			return
		}
		if err := convs.Unblock(r.Context(), conversationID, CurrentUserID(r)); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversation_id": conversationID, "blocked": false})
	}
}

func handleLeaveGroup(convs *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid group id", http.StatusBadRequest)
			return
		}
		if err := convs.LeaveGroup(r.Context(), groupID, CurrentUserID(r)); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"group_id": groupID, "left": true})
	}
}

func handleRemoveGroupMember(convs *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid group id", http.StatusBadRequest)
			return
		}
		targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}
		if err := convs.RemoveGroupMember(r.Context(), groupID, CurrentUserID(r), targetID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"group_id": groupID, "removed_user_id": targetID})
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	default:
		log.Error().Str("module", "httpserver").Err(err).Msg("request failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

package domain

// UpdateType tags a domain event with the kind of change it announces.
type UpdateType string

const (
	UpdateNew           UpdateType = "NEW"
	UpdateUpdate        UpdateType = "UPDATE"
	UpdateDelete        UpdateType = "DELETE"
	UpdatePin           UpdateType = "PIN"
	UpdateArchive       UpdateType = "ARCHIVE"
	UpdateDnd           UpdateType = "DND"
	UpdateMessageSent   UpdateType = "MESSAGE_SENT"
	UpdateMemberLeave   UpdateType = "MEMBER_LEAVE"
	UpdateMemberRemoved UpdateType = "MEMBER_REMOVED"
)

// Event is an internally published notification of a state change, consumed
// by the realtime bridge. Exactly one of ConversationID/GroupID is set,
// depending on the update type. ExcludeUserID (0 = nobody) names the actor
// who should not receive an echo of their own action. TargetUserID is set
// for member leave/removal events and names the affected user.
type Event struct {
	ConversationID int64
	GroupID        int64
	Type           UpdateType
	ExcludeUserID  int64
	TargetUserID   int64
	Data           any
}

// EventPublisher is the fire-and-forget entry point collaborators use to hand
// changes to the realtime core. Publish never blocks and gives no delivery
// guarantee back to the caller.
type EventPublisher interface {
	Publish(ev Event)
}

package model

// NotificationKind tags what happened so that consumers can pick a template.
type NotificationKind string

const (
	NotifyRequestCreated      NotificationKind = "request.created"
	NotifyRequestAccepted     NotificationKind = "request.accepted"
	NotifyRequestRejected     NotificationKind = "request.rejected"
	NotifyRequestWithdrawn    NotificationKind = "request.withdrawn"
	NotifyRequestExpired      NotificationKind = "request.expired"
	NotifyPaymentSucceeded    NotificationKind = "payment.succeeded"
	NotifyGroupRequestCreated NotificationKind = "group_request.created"
	NotifyGroupRequestDecided NotificationKind = "group_request.decided"
	NotifyGroupJoined         NotificationKind = "group.joined"
)

// Notification is one fire-and-forget message for a user.
type Notification struct {
	UserID      string
	Kind        NotificationKind
	Message     string
	ReferenceID string // request, group request or collaboration id
}

package event

// NotificationType classifies a derived transition notification.
type NotificationType string

const (
	NotifyGuideLost         NotificationType = "guide_lost"
	NotifyGuideRecovered    NotificationType = "guide_recovered"
	NotifyFrequentReacquire NotificationType = "frequent_reacquire"
	NotifyMountParking      NotificationType = "mount_parking"
	NotifyAlignComplete     NotificationType = "align_complete"
	NotifyAlignFailed       NotificationType = "align_failed"
	NotifyMeridianFlip      NotificationType = "meridian_flip"
)

// Notification is a derived alert emitted by the decoder's state machine
// alongside the raw event that triggered it. It is an Event like any other
// so batch parsing retains it and streaming consumers can forward it.
type Notification struct {
	Time float64
	Type NotificationType

	// Duration applies to guide lost/recovered and align notifications.
	Duration float64
	// Count and Window apply to frequent-reacquire notifications.
	Count  int
	Window float64
	// State applies to mount-parking, align-failed and meridian-flip
	// notifications.
	State string
}

func (e *Notification) Kind() Kind      { return KindNotification }
func (e *Notification) Offset() float64 { return e.Time }

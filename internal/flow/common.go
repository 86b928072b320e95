package flow

import "time"

// Action is the terminal state reached by one auth interaction.
type Action int

const (
	// RequestPhone means there is no usable link or phone; the front-end must ask for a contact.
	RequestPhone Action = iota
	// ReturnCachedLink means a still-valid link was found in the cache and no remote call was made.
	ReturnCachedLink
	// ReturnNewLink means a link was issued and cached before being returned.
	ReturnNewLink
	// ReportError means issuance failed; show the generic error only.
	ReportError
)

var StatusTextMap = map[Action]string{
	RequestPhone:     "request_phone",
	ReturnCachedLink: "cached_link",
	ReturnNewLink:    "new_link",
	ReportError:      "error",
}

func (a Action) String() string {
	if s, ok := StatusTextMap[a]; ok {
		return s
	}
	return "unknown"
}

var timeNow = time.Now

func SetTimNowFn(f func() time.Time) {
	timeNow = f
}

func RestoreTimeNow() {
	timeNow = time.Now
}

package core

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ActionKind identifies the user action being authorized
type ActionKind string

const (
	ActionPost    ActionKind = "post"
	ActionComment ActionKind = "comment"
	ActionMirror  ActionKind = "mirror"
)

// CollectKind selects the collect module attached to a publication
type CollectKind string

const (
	CollectFree   CollectKind = "free"
	CollectRevert CollectKind = "revert"
)

// CollectModule is the collect policy of a publication
type CollectModule struct {
	Kind         CollectKind
	FollowerOnly bool
}

// ReferenceModule is the reference policy of a publication
type ReferenceModule struct {
	FollowerOnly bool
}

// ActionRequest describes the action to perform. It is sent to the
// authorization service and never signed itself.
type ActionRequest struct {
	Kind            ActionKind
	ProfileID       string
	ContentURI      string // Opaque, only checked for non-emptiness
	PublicationID   string // Target of a comment or mirror
	CollectModule   CollectModule
	ReferenceModule ReferenceModule
}

// Validate performs the local checks done before any network call
func (r ActionRequest) Validate() error {
	if r.ProfileID == "" {
		return fmt.Errorf("profile id is required")
	}
	switch r.Kind {
	case ActionPost:
		if r.ContentURI == "" {
			return fmt.Errorf("content URI is required")
		}
	case ActionComment:
		if r.ContentURI == "" {
			return fmt.Errorf("content URI is required")
		}
		if r.PublicationID == "" {
			return fmt.Errorf("publication id is required for a comment")
		}
	case ActionMirror:
		if r.PublicationID == "" {
			return fmt.Errorf("publication id is required for a mirror")
		}
	default:
		return fmt.Errorf("unsupported action kind %q", r.Kind)
	}
	switch r.CollectModule.Kind {
	case "", CollectFree, CollectRevert:
	default:
		return fmt.Errorf("unsupported collect module %q", r.CollectModule.Kind)
	}
	return nil
}

// TxHandle identifies a submitted transaction. It is not a confirmation.
type TxHandle struct {
	Hash        common.Hash `json:"hash"`
	Kind        ActionKind  `json:"kind"`
	SubmittedAt time.Time   `json:"submittedAt"`
}

// Profile is a profile owned by an address
type Profile struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
}

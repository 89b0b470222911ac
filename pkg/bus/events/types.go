package events

import (
	"fmt"
	"time"

	"github.com/kgcourse/geopub/pkg/ids"
)

const publishStateTopic = "publish.state"

// TopicPublishState is the topic a single publish request reports its
// progress on.
func TopicPublishState(requestID ids.ID) string {
	return fmt.Sprintf("%s:%s", publishStateTopic, requestID)
}

// PublishState is a step of the publish flow.
type PublishState string

const (
	ResolvingWallet     PublishState = "ResolvingWallet"
	ResolvingSpace      PublishState = "ResolvingSpace"
	LookingUpGovernance PublishState = "LookingUpGovernance"
	PersonalPublish     PublishState = "PersonalPublish"
	DAOPublish          PublishState = "DaoPublish"
	Submitting          PublishState = "Submitting"
	Done                PublishState = "Done"
	Failed              PublishState = "Failed"
)

// Terminal reports whether no further transitions follow.
func (s PublishState) Terminal() bool {
	return s == Done || s == Failed
}

// Description is a short human readable label for progress displays.
func (s PublishState) Description() string {
	switch s {
	case ResolvingWallet:
		return "Resolving wallet"
	case ResolvingSpace:
		return "Resolving target space"
	case LookingUpGovernance:
		return "Looking up space governance"
	case PersonalPublish:
		return "Publishing edit to personal space"
	case DAOPublish:
		return "Proposing edit to DAO space"
	case Submitting:
		return "Submitting transaction"
	case Done:
		return "Published"
	case Failed:
		return "Failed"
	default:
		return string(s)
	}
}

// PublishStateView is published on TopicPublishState at every transition.
type PublishStateView struct {
	RequestID ids.ID
	State     PublishState
	// SpaceID is set once the target space is known.
	SpaceID ids.ID
	// TransactionHash is set once a transaction has been submitted.
	TransactionHash string
	Error           error
	At              time.Time
}

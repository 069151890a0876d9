package notification

import "go.uber.org/zap"

// Stage is the progress of one notification.
type Stage int

const (
	StageRequested Stage = iota
	StageTokenIssued
	StageLinkBuilt
	StageSent
	StageSendFailed
)

func (s Stage) String() string {
	switch s {
	case StageRequested:
		return "REQUESTED"
	case StageTokenIssued:
		return "TOKEN_ISSUED"
	case StageLinkBuilt:
		return "LINK_BUILT"
	case StageSent:
		return "SENT"
	case StageSendFailed:
		return "SEND_FAILED"
	default:
		return "UNKNOWN"
	}
}

// notice is one notification moving through its stages.
type notice struct {
	eventPrefix string
	username    string
	recipient   string
	templateID  string
	params      map[string]string
	stage       Stage
	logger      *zap.Logger
}

func (n *notice) advance(to Stage) {
	n.logger.Debug("notification stage",
		zap.String("event", n.eventPrefix),
		zap.String("username", n.username),
		zap.Stringer("from", n.stage),
		zap.Stringer("to", to),
	)
	n.stage = to
}

func (n *notice) tokenIssued() {
	n.advance(StageTokenIssued)
}

// tokenFailed ends the notification. Nothing has been sent.
func (n *notice) tokenFailed(err error) error {
	n.logger.Warn("failed to issue notification token",
		zap.String("event", n.eventPrefix),
		zap.String("username", n.username),
		zap.Error(err),
	)
	return err
}

func (n *notice) linkBuilt(link string) string {
	n.advance(StageLinkBuilt)
	return link
}

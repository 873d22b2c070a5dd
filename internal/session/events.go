package session

import (
	"go.uber.org/zap"

	"github.com/chukul/sessionctl/internal/workspace"
)

// sessionFields are attached to every lifecycle record. With the JSON
// encoder each record reads {timestamp, message, sessionId, sessionName, type}.
func sessionFields(sess workspace.Session, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("sessionId", sess.ID),
		zap.String("sessionName", sess.Name),
		zap.String("type", string(sess.Type)),
	}
	return append(fields, extra...)
}

func (l *lifecycle) event(sess workspace.Session, msg string, extra ...zap.Field) {
	l.log.Info(msg, sessionFields(sess, extra...)...)
}

func (l *lifecycle) eventErr(sess workspace.Session, msg string, err error) {
	l.log.Warn(msg, sessionFields(sess, zap.Error(err))...)
}

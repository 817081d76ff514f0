package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/Abraxas-365/rentify/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogAdminAction(_ context.Context, actor *kernel.AuthContext, action string, target string, ip string) {
	logx.WithFields(logx.Fields{
		"audit_event": "admin_action",
		"user_id":     actorID(actor),
		"action":      action,
		"target":      target,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Info("Audit: admin action")
}

func (s *LogxAuditService) LogAccessDenied(_ context.Context, actor *kernel.AuthContext, path string, ip string) {
	logx.WithFields(logx.Fields{
		"audit_event": "access_denied",
		"user_id":     actorID(actor),
		"path":        path,
		"ip":          ip,
		"timestamp":   time.Now(),
	}).Warn("Audit: access denied")
}

func actorID(actor *kernel.AuthContext) string {
	if actor == nil {
		return ""
	}
	return actor.UserID.String()
}

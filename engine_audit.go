package authgate

import "context"

// emitAudit records a successful operation. It never fails the caller: sink errors are
// logged by the sink and a full async buffer drops the entry.
func (e *Engine) emitAudit(ctx context.Context, action, email string) {
	if e == nil || !e.config.Audit.Enabled || e.auditSink == nil {
		return
	}

	entry := AuditEntry{
		Action:    action,
		Email:     email,
		IP:        ClientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		CreatedAt: e.now(),
	}

	if e.audit != nil {
		e.audit.Emit(ctx, entry)
		return
	}
	// The mutation is already committed; a client hanging up must not lose the record.
	e.auditSink.Emit(context.WithoutCancel(ctx), entry)
}

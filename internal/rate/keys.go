package rate

import (
	"crypto/sha256"
	"encoding/hex"
)

func (l *Limiter) key(kind, subject string) string {
	return l.config.Namespace + ":" + kind + ":" + subject
}

func (l *Limiter) loginUserKey(email string) string { return l.key("l", digest(email)) }
func (l *Limiter) loginIPKey(ip string) string { return l.key("li", ip) }
func (l *Limiter) forgotUserKey(email string) string { return l.key("f", digest(email)) }
func (l *Limiter) forgotIPKey(ip string) string { return l.key("fi", ip) }
func (l *Limiter) verifyUserKey(email string) string { return l.key("v", digest(email)) }

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

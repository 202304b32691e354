// Package core is the invitation issuance engine: it gates non-admin
// requests behind a captcha, enforces the weekly quota, drives the external
// allocation call and records history and daily statistics.
//
// All mutations for one user are serialized through a keyed mutex; requests
// from different users are independent. The conversation state (waiting for
// a captcha answer or not) lives in process memory; losing it on restart
// only forces the user to re-issue /invite.
package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"invitebot/entity"
	"invitebot/lib/keyedmutex"
	"invitebot/lib/sl"
)

// Database defines the storage operations the core depends on.
// Implemented by internal/database/redis.go.
type Database interface {
	UpsertUser(ctx context.Context, user *entity.User) error
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	SaveCaptcha(ctx context.Context, id int64, answer string, ttl time.Duration) error
	GetCaptcha(ctx context.Context, id int64) (string, error)
	DeleteCaptcha(ctx context.Context, id int64) error
	AppendInvite(ctx context.Context, id int64, record *entity.InviteRecord) error
	InviteHistory(ctx context.Context, id int64) ([]entity.InviteRecord, error)
	RecordIssuance(ctx context.Context, id int64, adminGenerated bool) error
	Stats(ctx context.Context, days int) ([]entity.DailyStats, error)
	Health(ctx context.Context) error
}

// Allocator requests invite codes from the identity instance.
// Implemented by internal/misskey.
type Allocator interface {
	CreateInvite(ctx context.Context, permanent bool) (*entity.AllocatedCode, error)
	InviteURL(code string) string
	InstanceURL() string
}

// CaptchaGenerator produces challenge text together with its rendered image.
// Implemented by internal/captcha.
type CaptchaGenerator interface {
	Generate() (text string, image []byte, err error)
}

type Config struct {
	InstanceName     string
	AdminIDs         []int64
	WeeklyQuota      int
	CaptchaTTL       time.Duration
	InviteExpiryDays int
	APIToken         string
}

const quotaWindow = 7 * 24 * time.Hour

type Core struct {
	db    Database
	alloc Allocator
	gen   CaptchaGenerator
	conf  Config
	log   *slog.Logger
	locks *keyedmutex.KeyedMutex

	sessions *sessions

	now func() time.Time
}

func New(db Database, alloc Allocator, gen CaptchaGenerator, conf Config, log *slog.Logger) *Core {
	if conf.WeeklyQuota == 0 {
		conf.WeeklyQuota = 1
	}
	if conf.CaptchaTTL == 0 {
		conf.CaptchaTTL = 300 * time.Second
	}
	if conf.InviteExpiryDays == 0 {
		conf.InviteExpiryDays = 7
	}
	return &Core{
		db:       db,
		alloc:    alloc,
		gen:      gen,
		conf:     conf,
		log:      log.With(sl.Module("core")),
		locks:    keyedmutex.New(),
		sessions: newSessions(),
		now:      time.Now,
	}
}

// RegisterContact creates or refreshes the user profile. Profile fields are
// overwritten on every contact; the admin flag is recomputed from the
// allow-list and the original registration time is preserved.
func (c *Core) RegisterContact(ctx context.Context, id int64, username, firstName, lastName string) (*entity.User, error) {
	existing, err := c.db.GetUser(ctx, id)
	if err != nil {
		c.log.Error("loading user", sl.UserId(id), sl.Err(err))
		return nil, entity.ErrStoreUnavailable
	}

	user := &entity.User{
		ID:           id,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		IsAdmin:      c.inAllowList(id),
		RegisteredAt: c.now(),
	}
	if existing != nil {
		user.RegisteredAt = existing.RegisteredAt
	}

	if err = c.db.UpsertUser(ctx, user); err != nil {
		c.log.Error("saving user", sl.UserId(id), sl.Err(err))
		return nil, entity.ErrStoreUnavailable
	}
	return user, nil
}

func (c *Core) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	user, err := c.db.GetUser(ctx, id)
	if err != nil {
		return nil, entity.ErrStoreUnavailable
	}
	return user, nil
}

// IsAdmin never fails: a store error degrades to the allow-list check alone.
func (c *Core) IsAdmin(ctx context.Context, id int64) bool {
	if c.inAllowList(id) {
		return true
	}
	user, err := c.db.GetUser(ctx, id)
	if err != nil {
		c.log.Warn("admin check fell back to allow-list", sl.UserId(id), sl.Err(err))
		return false
	}
	return user != nil && user.IsAdmin
}

func (c *Core) inAllowList(id int64) bool {
	for _, adminID := range c.conf.AdminIDs {
		if adminID == id {
			return true
		}
	}
	return false
}

// AdminIDs returns the configured allow-list, used by the transport to
// notify admins.
func (c *Core) AdminIDs() []int64 {
	ids := make([]int64, len(c.conf.AdminIDs))
	copy(ids, c.conf.AdminIDs)
	return ids
}

// RequestInvite is the single entry point for an invite request.
//
// Admins bypass both quota and captcha and receive a permanent code at
// once. Non-admins are checked against the weekly quota and then handed a
// captcha challenge; issuance completes later through SubmitAnswer. Exactly
// one of the two results is non-nil on success.
func (c *Core) RequestInvite(ctx context.Context, userID int64) (*entity.Issuance, *entity.Challenge, error) {
	c.locks.Lock(userID)
	defer c.locks.Unlock(userID)

	if c.IsAdmin(ctx, userID) {
		issued, err := c.issue(ctx, userID, true)
		return issued, nil, err
	}

	if err := c.checkQuota(ctx, userID); err != nil {
		return nil, nil, err
	}

	text, image, err := c.gen.Generate()
	if err != nil {
		c.log.Error("generating captcha", sl.UserId(userID), sl.Err(err))
		return nil, nil, fmt.Errorf("generate captcha: %w", err)
	}
	if err = c.db.SaveCaptcha(ctx, userID, text, c.conf.CaptchaTTL); err != nil {
		c.log.Error("saving captcha", sl.UserId(userID), sl.Err(err))
		return nil, nil, entity.ErrStoreUnavailable
	}
	c.sessions.set(userID, stateAwaitingCaptcha)

	return nil, &entity.Challenge{Image: image, TTL: c.conf.CaptchaTTL}, nil
}

// SubmitAnswer handles free-text input. When the user is not awaiting a
// captcha the text is not ours to interpret and handled is false. Otherwise
// this is the single verification attempt for the pending challenge: the
// session drops back to idle no matter the outcome, and a failed attempt
// requires a fresh /invite.
func (c *Core) SubmitAnswer(ctx context.Context, userID int64, text string) (issued *entity.Issuance, handled bool, err error) {
	if !c.sessions.takeAwaiting(userID) {
		return nil, false, nil
	}

	c.locks.Lock(userID)
	defer c.locks.Unlock(userID)

	ok, err := c.verifyCaptcha(ctx, userID, strings.TrimSpace(text))
	if err != nil {
		return nil, true, err
	}
	if !ok {
		return nil, true, entity.ErrCaptchaMismatch
	}

	admin := c.IsAdmin(ctx, userID)
	if !admin {
		// Re-check under the lock: a concurrent request must not slip
		// past the quota boundary between challenge and answer.
		if err = c.checkQuota(ctx, userID); err != nil {
			return nil, true, err
		}
	}

	issued, err = c.issue(ctx, userID, admin)
	return issued, true, err
}

// verifyCaptcha compares case-insensitively and consumes the stored answer
// only on a match. An absent answer (expired or never issued) fails the
// same way as a wrong one; a later /invite overwrites whatever is stored.
func (c *Core) verifyCaptcha(ctx context.Context, userID int64, answer string) (bool, error) {
	if c.IsAdmin(ctx, userID) {
		return true, nil
	}
	stored, err := c.db.GetCaptcha(ctx, userID)
	if err != nil {
		c.log.Error("loading captcha", sl.UserId(userID), sl.Err(err))
		return false, entity.ErrStoreUnavailable
	}
	if stored == "" || !strings.EqualFold(stored, answer) {
		return false, nil
	}
	if err = c.db.DeleteCaptcha(ctx, userID); err != nil {
		c.log.Error("consuming captcha", sl.UserId(userID), sl.Err(err))
		return false, entity.ErrStoreUnavailable
	}
	return true, nil
}

// checkQuota counts records inside the trailing weekly window. A record
// exactly at the window boundary is outside it (strict comparison).
func (c *Core) checkQuota(ctx context.Context, userID int64) error {
	history, err := c.db.InviteHistory(ctx, userID)
	if err != nil {
		c.log.Error("loading invite history", sl.UserId(userID), sl.Err(err))
		return entity.ErrStoreUnavailable
	}
	cutoff := c.now().Add(-quotaWindow)
	recent := 0
	for _, record := range history {
		if record.RequestedAt.After(cutoff) {
			recent++
		}
	}
	if recent >= c.conf.WeeklyQuota {
		return entity.ErrQuotaExceeded
	}
	return nil
}

// issue calls the allocator once and records the result. The ledger append
// and the stats update should both apply, but a stats failure after a
// successful append is logged and tolerated: the issuance already
// happened and must be reported to the user.
func (c *Core) issue(ctx context.Context, userID int64, admin bool) (*entity.Issuance, error) {
	log := c.log.With(
		slog.String("attempt", uuid.NewString()),
		sl.UserId(userID),
		slog.Bool("admin", admin),
	)

	code, err := c.alloc.CreateInvite(ctx, admin)
	if err != nil {
		log.Error("allocating invite code", sl.Err(err))
		return nil, entity.ErrIssuanceFailed
	}

	record := entity.InviteRecord{
		Code:           code.Code,
		RequestedAt:    c.now(),
		AdminGenerated: admin,
	}
	if !admin {
		expires := record.RequestedAt.Add(time.Duration(c.conf.InviteExpiryDays) * 24 * time.Hour)
		record.ExpiresAt = &expires
	}

	if err = c.db.AppendInvite(ctx, userID, &record); err != nil {
		log.Error("recording issued invite", sl.Err(err))
		return nil, entity.ErrStoreUnavailable
	}
	if err = c.db.RecordIssuance(ctx, userID, admin); err != nil {
		log.Warn("stats update failed after ledger write", sl.Err(err))
	}

	log.Info("invite code issued")
	return &entity.Issuance{Record: record, URL: c.alloc.InviteURL(record.Code)}, nil
}

// History returns the user's issued codes, oldest first.
func (c *Core) History(ctx context.Context, userID int64) ([]entity.InviteRecord, error) {
	history, err := c.db.InviteHistory(ctx, userID)
	if err != nil {
		c.log.Error("loading invite history", sl.UserId(userID), sl.Err(err))
		return nil, entity.ErrStoreUnavailable
	}
	return history, nil
}

// Stats returns daily buckets for the trailing window, most recent first,
// with silent days zero-filled.
func (c *Core) Stats(ctx context.Context, days int) ([]entity.DailyStats, error) {
	stats, err := c.db.Stats(ctx, days)
	if err != nil {
		c.log.Error("loading stats", slog.Int("days", days), sl.Err(err))
		return nil, entity.ErrStoreUnavailable
	}
	return stats, nil
}

func (c *Core) Health(ctx context.Context) error {
	return c.db.Health(ctx)
}

// AuthenticateByToken checks the operator API token. An unset token
// rejects everything.
func (c *Core) AuthenticateByToken(token string) error {
	if c.conf.APIToken == "" {
		return fmt.Errorf("api access disabled")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(c.conf.APIToken)) != 1 {
		return fmt.Errorf("invalid token")
	}
	return nil
}

func (c *Core) InstanceURL() string {
	return c.alloc.InstanceURL()
}

func (c *Core) InstanceName() string {
	return c.conf.InstanceName
}

func (c *Core) InviteExpiryDays() int {
	return c.conf.InviteExpiryDays
}

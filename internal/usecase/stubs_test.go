package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/repository"
)

// stubUserRepo keeps users in memory for deterministic service tests.
type stubUserRepo struct {
	users   map[string]*domain.User
	history map[string][]domain.PasswordHistoryEntry
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:   make(map[string]*domain.User),
		history: make(map[string][]domain.PasswordHistoryEntry),
	}
}

func (r *stubUserRepo) Create(_ context.Context, user domain.User) error {
	for _, existing := range r.users {
		if existing.PhoneNumber == user.PhoneNumber {
			return repository.ErrDuplicate
		}
	}
	copied := user
	r.users[user.ID] = &copied
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *stubUserRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	for _, user := range r.users {
		if user.PhoneNumber == phone {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id string, passwordHash string, setAt time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = &passwordHash
	user.PasswordSetAt = &setAt
	user.PasswordFailCount = 0
	user.LockedUntil = nil
	user.UpdatedAt = setAt
	return nil
}

func (r *stubUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LastLoginAt = &at
	return nil
}

func (r *stubUserRepo) SetFailState(_ context.Context, id string, failCount int, lockedUntil *time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordFailCount = failCount
	user.LockedUntil = lockedUntil
	return nil
}

func (r *stubUserRepo) IncrementFailCount(_ context.Context, id string) (int, error) {
	user, ok := r.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	user.PasswordFailCount++
	return user.PasswordFailCount, nil
}

func (r *stubUserRepo) ListPasswordHistory(_ context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	entries := append([]domain.PasswordHistoryEntry(nil), r.history[userID]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].SetAt.After(entries[j].SetAt) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *stubUserRepo) AddPasswordHistory(_ context.Context, entry domain.PasswordHistoryEntry) error {
	r.history[entry.UserID] = append(r.history[entry.UserID], entry)
	return nil
}

func (r *stubUserRepo) TrimPasswordHistory(_ context.Context, userID string, keep int) error {
	entries := r.history[userID]
	sort.Slice(entries, func(i, j int) bool { return entries[i].SetAt.After(entries[j].SetAt) })
	if len(entries) > keep {
		entries = entries[:keep]
	}
	r.history[userID] = entries
	return nil
}

// stubCodeRepo keeps verification codes in memory.
type stubCodeRepo struct {
	codes []domain.VerificationCode
}

func (r *stubCodeRepo) Create(_ context.Context, code domain.VerificationCode) error {
	r.codes = append(r.codes, code)
	return nil
}

func (r *stubCodeRepo) GetLatestUnused(_ context.Context, phone string, purpose domain.CodePurpose) (*domain.VerificationCode, error) {
	var latest *domain.VerificationCode
	for i := range r.codes {
		code := &r.codes[i]
		if code.PhoneNumber != phone || code.Purpose != purpose || code.UsedAt != nil {
			continue
		}
		if latest == nil || code.CreatedAt.After(latest.CreatedAt) {
			latest = code
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *stubCodeRepo) MarkUsed(_ context.Context, id string, at time.Time) error {
	for i := range r.codes {
		if r.codes[i].ID == id && r.codes[i].UsedAt == nil {
			r.codes[i].UsedAt = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubCodeRepo) CountSentSince(_ context.Context, phone string, since time.Time) (int, error) {
	count := 0
	for _, code := range r.codes {
		if code.PhoneNumber == phone && !code.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *stubCodeRepo) LastSentFromIP(_ context.Context, sourceIP string) (time.Time, bool, error) {
	var last time.Time
	found := false
	for _, code := range r.codes {
		if code.SourceIP == nil || *code.SourceIP != sourceIP {
			continue
		}
		if !found || code.CreatedAt.After(last) {
			last = code.CreatedAt
			found = true
		}
	}
	return last, found, nil
}

func (r *stubCodeRepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	var kept []domain.VerificationCode
	deleted := 0
	for _, code := range r.codes {
		if code.ExpiresAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, code)
	}
	r.codes = kept
	return deleted, nil
}

// stubSessionRepo keeps sessions keyed by token hash.
type stubSessionRepo struct {
	sessions map[string]*domain.Session
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *stubSessionRepo) Create(_ context.Context, session domain.Session) error {
	copied := session
	r.sessions[session.TokenHash] = &copied
	return nil
}

func (r *stubSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *stubSessionRepo) Revoke(_ context.Context, tokenHash string, at time.Time) (bool, error) {
	session, ok := r.sessions[tokenHash]
	if !ok || session.RevokedAt != nil {
		return false, nil
	}
	session.RevokedAt = &at
	return true, nil
}

func (r *stubSessionRepo) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int, error) {
	count := 0
	for _, session := range r.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			session.RevokedAt = &at
			count++
		}
	}
	return count, nil
}

func (r *stubSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	count := 0
	for hash, session := range r.sessions {
		if session.ExpiresAt.Before(before) {
			delete(r.sessions, hash)
			count++
		}
	}
	return count, nil
}

// stubFailureRepo keeps login failures in memory.
type stubFailureRepo struct {
	failures []domain.LoginFailure
}

func (r *stubFailureRepo) Record(_ context.Context, failure domain.LoginFailure) error {
	r.failures = append(r.failures, failure)
	return nil
}

func (r *stubFailureRepo) CountSince(_ context.Context, ipAddress string, since time.Time) (int, error) {
	count := 0
	for _, failure := range r.failures {
		if failure.IPAddress == ipAddress && !failure.FailedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *stubFailureRepo) ClearForIP(_ context.Context, ipAddress string) error {
	var kept []domain.LoginFailure
	for _, failure := range r.failures {
		if failure.IPAddress != ipAddress {
			kept = append(kept, failure)
		}
	}
	r.failures = kept
	return nil
}

func (r *stubFailureRepo) DeleteOlderThan(_ context.Context, before time.Time) (int, error) {
	var kept []domain.LoginFailure
	deleted := 0
	for _, failure := range r.failures {
		if failure.FailedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, failure)
	}
	r.failures = kept
	return deleted, nil
}

// stubPublisher counts published events.
type stubPublisher struct {
	codeRequested   int
	userRegistered  int
	passwordChanged int
	accountLocked   int
	sessionRevoked  int
	lastCode        string
}

func (p *stubPublisher) PublishCodeRequested(_ context.Context, event domain.CodeRequestedEvent) error {
	p.codeRequested++
	p.lastCode = event.Code
	return nil
}

func (p *stubPublisher) PublishUserRegistered(_ context.Context, _ domain.UserRegisteredEvent) error {
	p.userRegistered++
	return nil
}

func (p *stubPublisher) PublishPasswordChanged(_ context.Context, _ domain.PasswordChangedEvent) error {
	p.passwordChanged++
	return nil
}

func (p *stubPublisher) PublishAccountLocked(_ context.Context, _ domain.AccountLockedEvent) error {
	p.accountLocked++
	return nil
}

func (p *stubPublisher) PublishSessionRevoked(_ context.Context, _ domain.SessionRevokedEvent) error {
	p.sessionRevoked++
	return nil
}

// stubCatalogRepo serves a fixed product set.
type stubCatalogRepo struct {
	products   []domain.Product
	categories []domain.Category
}

func (r *stubCatalogRepo) HotProducts(_ context.Context, limit int) ([]domain.Product, error) {
	var hot []domain.Product
	for _, product := range r.products {
		if product.IsHot {
			hot = append(hot, product)
		}
	}
	if len(hot) > limit {
		hot = hot[:limit]
	}
	return hot, nil
}

func (r *stubCatalogRepo) Search(_ context.Context, query domain.ProductQuery) (*domain.ProductPage, error) {
	var items []domain.Product
	for _, product := range r.products {
		if query.CategoryID != "" && product.CategoryID != query.CategoryID {
			continue
		}
		items = append(items, product)
	}
	return &domain.ProductPage{Items: items, Total: len(items), Page: 1, PageSize: 20}, nil
}

func (r *stubCatalogRepo) ListCategories(_ context.Context) ([]domain.Category, error) {
	return r.categories, nil
}

func (r *stubCatalogRepo) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	for i := range r.products {
		if r.products[i].ID == id {
			copied := r.products[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sort"
	"testing"
	"time"

	uuid "github.com/google/uuid"

	"github.com/Ezra31448/soap-api/internal/core/domain"
	"github.com/Ezra31448/soap-api/internal/core/port"
	"github.com/Ezra31448/soap-api/internal/infra/config"
	"github.com/Ezra31448/soap-api/internal/infra/security"
	"github.com/Ezra31448/soap-api/internal/repository"
)

// Shared map-backed mocks for the usecase suite. Error fields inject
// failures; counters record interactions the tests assert on.

type userRepoMock struct {
	users          map[string]domain.User
	order          []string
	createErr      error
	getErr         error
	updateErr      error
	lastLoginCalls int
}

func newUserRepoMock() *userRepoMock {
	return &userRepoMock{users: make(map[string]domain.User)}
}

func (m *userRepoMock) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrConflict
		}
	}
	m.users[user.ID] = user
	m.order = append(m.order, user.ID)
	return nil
}

func (m *userRepoMock) GetByID(_ context.Context, id string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if user, ok := m.users[id]; ok {
		return &user, nil
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, user := range m.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *userRepoMock) Update(_ context.Context, user domain.User, expectedUpdatedAt time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if !existing.UpdatedAt.Equal(expectedUpdatedAt) {
		return repository.ErrConcurrentUpdate
	}
	m.users[user.ID] = user
	return nil
}

func (m *userRepoMock) UpdateStatus(_ context.Context, id string, status domain.UserStatus, changedAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Status = status
	user.UpdatedAt = changedAt
	m.users[id] = user
	return nil
}

func (m *userRepoMock) UpdatePassword(_ context.Context, id string, passwordHash, passwordAlgo string, changedAt time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.PasswordAlgo = passwordAlgo
	user.UpdatedAt = changedAt
	m.users[id] = user
	return nil
}

func (m *userRepoMock) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LastLogin = &at
	m.users[id] = user
	m.lastLoginCalls++
	return nil
}

func (m *userRepoMock) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	if offset >= len(m.order) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.order) {
		end = len(m.order)
	}
	users := make([]domain.User, 0, end-offset)
	for _, id := range m.order[offset:end] {
		users = append(users, m.users[id])
	}
	return users, nil
}

func (m *userRepoMock) Count(_ context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

type roleRepoMock struct {
	roles     map[string]domain.Role
	byName    map[string]domain.Role
	userRoles map[string]map[string]domain.UserRole
	assignErr error
	removeErr error
}

func newRoleRepoMock() *roleRepoMock {
	return &roleRepoMock{
		roles:     make(map[string]domain.Role),
		byName:    make(map[string]domain.Role),
		userRoles: make(map[string]map[string]domain.UserRole),
	}
}

func (m *roleRepoMock) Create(_ context.Context, role domain.Role) error {
	if _, exists := m.byName[role.Name]; exists {
		return repository.ErrConflict
	}
	m.roles[role.ID] = role
	m.byName[role.Name] = role
	return nil
}

func (m *roleRepoMock) Update(_ context.Context, role domain.Role) error {
	existing, ok := m.roles[role.ID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.byName, existing.Name)
	m.roles[role.ID] = role
	m.byName[role.Name] = role
	return nil
}

func (m *roleRepoMock) Delete(_ context.Context, roleID string) error {
	role, ok := m.roles[roleID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.roles, roleID)
	delete(m.byName, role.Name)
	return nil
}

func (m *roleRepoMock) List(_ context.Context) ([]domain.Role, error) {
	roles := make([]domain.Role, 0, len(m.roles))
	for _, role := range m.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (m *roleRepoMock) GetByID(_ context.Context, id string) (*domain.Role, error) {
	if role, ok := m.roles[id]; ok {
		return &role, nil
	}
	return nil, repository.ErrNotFound
}

func (m *roleRepoMock) GetByName(_ context.Context, name string) (*domain.Role, error) {
	if role, ok := m.byName[name]; ok {
		return &role, nil
	}
	return nil, repository.ErrNotFound
}

func (m *roleRepoMock) ListByUser(_ context.Context, userID string) ([]domain.Role, error) {
	edges := m.userRoles[userID]
	roles := make([]domain.Role, 0, len(edges))
	for roleID := range edges {
		if role, ok := m.roles[roleID]; ok {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (m *roleRepoMock) AssignToUser(_ context.Context, assignment domain.UserRole) (bool, error) {
	if m.assignErr != nil {
		return false, m.assignErr
	}
	edges, ok := m.userRoles[assignment.UserID]
	if !ok {
		edges = make(map[string]domain.UserRole)
		m.userRoles[assignment.UserID] = edges
	}
	if _, exists := edges[assignment.RoleID]; exists {
		return false, nil
	}
	edges[assignment.RoleID] = assignment
	return true, nil
}

func (m *roleRepoMock) RemoveFromUser(_ context.Context, userID, roleID string) (bool, error) {
	if m.removeErr != nil {
		return false, m.removeErr
	}
	edges, ok := m.userRoles[userID]
	if !ok {
		return false, nil
	}
	if _, exists := edges[roleID]; !exists {
		return false, nil
	}
	delete(edges, roleID)
	return true, nil
}

func (m *roleRepoMock) ListUserIDsByRole(_ context.Context, roleID string) ([]string, error) {
	ids := make([]string, 0)
	for userID, edges := range m.userRoles {
		if _, ok := edges[roleID]; ok {
			ids = append(ids, userID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *roleRepoMock) CountAssignments(_ context.Context, roleID string) (int64, error) {
	var count int64
	for _, edges := range m.userRoles {
		if _, ok := edges[roleID]; ok {
			count++
		}
	}
	return count, nil
}

type permissionRepoMock struct {
	roles           *roleRepoMock
	perms           map[string]domain.Permission
	byName          map[string]domain.Permission
	grants          map[string]map[string]domain.RolePermission
	listByUserCalls int
	listByUserErr   error
}

func newPermissionRepoMock(roles *roleRepoMock) *permissionRepoMock {
	return &permissionRepoMock{
		roles:  roles,
		perms:  make(map[string]domain.Permission),
		byName: make(map[string]domain.Permission),
		grants: make(map[string]map[string]domain.RolePermission),
	}
}

func (m *permissionRepoMock) Create(_ context.Context, permission domain.Permission) error {
	if _, exists := m.byName[permission.Name]; exists {
		return repository.ErrConflict
	}
	m.perms[permission.ID] = permission
	m.byName[permission.Name] = permission
	return nil
}

func (m *permissionRepoMock) GetByName(_ context.Context, name string) (*domain.Permission, error) {
	if perm, ok := m.byName[name]; ok {
		return &perm, nil
	}
	return nil, repository.ErrNotFound
}

func (m *permissionRepoMock) List(_ context.Context) ([]domain.Permission, error) {
	perms := make([]domain.Permission, 0, len(m.perms))
	for _, perm := range m.perms {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms, nil
}

func (m *permissionRepoMock) ListByRole(_ context.Context, roleID string) ([]domain.Permission, error) {
	edges := m.grants[roleID]
	perms := make([]domain.Permission, 0, len(edges))
	for permID := range edges {
		if perm, ok := m.perms[permID]; ok {
			perms = append(perms, perm)
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms, nil
}

func (m *permissionRepoMock) ListByUser(_ context.Context, userID string) ([]domain.Permission, error) {
	m.listByUserCalls++
	if m.listByUserErr != nil {
		return nil, m.listByUserErr
	}
	seen := make(map[string]struct{})
	perms := make([]domain.Permission, 0)
	if m.roles == nil {
		return perms, nil
	}
	for roleID := range m.roles.userRoles[userID] {
		for permID := range m.grants[roleID] {
			if _, ok := seen[permID]; ok {
				continue
			}
			seen[permID] = struct{}{}
			if perm, exists := m.perms[permID]; exists {
				perms = append(perms, perm)
			}
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms, nil
}

func (m *permissionRepoMock) GrantToRole(_ context.Context, grant domain.RolePermission) (bool, error) {
	edges, ok := m.grants[grant.RoleID]
	if !ok {
		edges = make(map[string]domain.RolePermission)
		m.grants[grant.RoleID] = edges
	}
	if _, exists := edges[grant.PermissionID]; exists {
		return false, nil
	}
	edges[grant.PermissionID] = grant
	return true, nil
}

type tokenRepoMock struct {
	tokens    map[string]domain.PasswordResetToken
	createErr error
}

func newTokenRepoMock() *tokenRepoMock {
	return &tokenRepoMock{tokens: make(map[string]domain.PasswordResetToken)}
}

func (m *tokenRepoMock) CreatePasswordReset(_ context.Context, token domain.PasswordResetToken) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.tokens[token.ID] = token
	return nil
}

func (m *tokenRepoMock) GetPasswordResetByHash(_ context.Context, hash string) (*domain.PasswordResetToken, error) {
	for _, token := range m.tokens {
		if token.TokenHash == hash {
			found := token
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *tokenRepoMock) ConsumePasswordReset(_ context.Context, id string, usedAt time.Time) (bool, error) {
	token, ok := m.tokens[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if token.UsedAt != nil || token.RevokedAt != nil {
		return false, nil
	}
	token.UsedAt = &usedAt
	m.tokens[id] = token
	return true, nil
}

func (m *tokenRepoMock) RevokePasswordResetsForUser(_ context.Context, userID string, revokedAt time.Time) error {
	for id, token := range m.tokens {
		if token.UserID != userID || token.UsedAt != nil || token.RevokedAt != nil {
			continue
		}
		at := revokedAt
		token.RevokedAt = &at
		m.tokens[id] = token
	}
	return nil
}

type auditRepoMock struct {
	entries   []domain.AuditLogEntry
	insertErr error
	listErr   error
}

func (m *auditRepoMock) Insert(_ context.Context, entry domain.AuditLogEntry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *auditRepoMock) List(_ context.Context, filter domain.AuditFilter, page domain.AuditPage) ([]domain.AuditLogEntry, int64, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}

	matched := make([]domain.AuditLogEntry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		entry := m.entries[i]
		if filter.UserID != "" && (entry.UserID == nil || *entry.UserID != filter.UserID) {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && entry.ResourceType != filter.ResourceType {
			continue
		}
		if !filter.From.IsZero() && entry.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && entry.CreatedAt.After(filter.To) {
			continue
		}
		matched = append(matched, entry)
	}

	total := int64(len(matched))
	offset := page.Offset()
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *auditRepoMock) CountByAction(_ context.Context, from, to time.Time) ([]domain.AuditActionCount, error) {
	counts := make(map[domain.AuditAction]int64)
	for _, entry := range m.entries {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		counts[entry.Action]++
	}

	result := make([]domain.AuditActionCount, 0, len(counts))
	for action, count := range counts {
		result = append(result, domain.AuditActionCount{Action: action, Count: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Action < result[j].Action })
	return result, nil
}

func (m *auditRepoMock) byAction(action domain.AuditAction) []domain.AuditLogEntry {
	matched := make([]domain.AuditLogEntry, 0)
	for _, entry := range m.entries {
		if entry.Action == action {
			matched = append(matched, entry)
		}
	}
	return matched
}

type revocationStoreMock struct {
	revoked map[string]string
	markers map[string]domain.SubjectRevocation
	err     error
}

func newRevocationStoreMock() *revocationStoreMock {
	return &revocationStoreMock{
		revoked: make(map[string]string),
		markers: make(map[string]domain.SubjectRevocation),
	}
}

func (m *revocationStoreMock) MarkRevoked(_ context.Context, tokenID, reason string, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.revoked[tokenID] = reason
	return nil
}

func (m *revocationStoreMock) IsRevoked(_ context.Context, tokenID string) (bool, string, error) {
	if m.err != nil {
		return false, "", m.err
	}
	reason, ok := m.revoked[tokenID]
	return ok, reason, nil
}

func (m *revocationStoreMock) MarkSubjectRevoked(_ context.Context, revocation domain.SubjectRevocation, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.markers[revocation.SubjectID] = revocation
	return nil
}

func (m *revocationStoreMock) SubjectRevocation(_ context.Context, subjectID string) (*domain.SubjectRevocation, error) {
	if m.err != nil {
		return nil, m.err
	}
	if marker, ok := m.markers[subjectID]; ok {
		return &marker, nil
	}
	return nil, nil
}

type rateLimitStoreMock struct {
	attempts map[string][]time.Time
}

func newRateLimitStoreMock() *rateLimitStoreMock {
	return &rateLimitStoreMock{attempts: make(map[string][]time.Time)}
}

func (m *rateLimitStoreMock) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	cutoff := reference.Add(-window)
	kept := make([]time.Time, 0)
	for _, at := range m.attempts[identifier] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	m.attempts[identifier] = kept
	return nil
}

func (m *rateLimitStoreMock) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	cutoff := reference.Add(-window)
	count := 0
	for _, at := range m.attempts[identifier] {
		if at.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (m *rateLimitStoreMock) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	m.attempts[identifier] = append(m.attempts[identifier], at)
	return nil
}

func (m *rateLimitStoreMock) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	cutoff := reference.Add(-window)
	var oldest time.Time
	found := false
	for _, at := range m.attempts[identifier] {
		if !at.After(cutoff) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

type permissionCacheMock struct {
	sets      map[string]domain.PermissionSet
	getCalls  int
	setCalls  int
	getErr    error
	setErr    error
	deleteErr error
}

func newPermissionCacheMock() *permissionCacheMock {
	return &permissionCacheMock{sets: make(map[string]domain.PermissionSet)}
}

func (m *permissionCacheMock) GetPermissionSet(_ context.Context, userID string) (domain.PermissionSet, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	set, ok := m.sets[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := make(domain.PermissionSet, len(set))
	for key := range set {
		copied.Add(key)
	}
	return copied, nil
}

func (m *permissionCacheMock) SetPermissionSet(_ context.Context, userID string, set domain.PermissionSet, _ time.Duration) error {
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	copied := make(domain.PermissionSet, len(set))
	for key := range set {
		copied.Add(key)
	}
	m.sets[userID] = copied
	return nil
}

func (m *permissionCacheMock) DeletePermissionSets(_ context.Context, userIDs ...string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, userID := range userIDs {
		delete(m.sets, userID)
	}
	return nil
}

type unitOfWorkMock struct {
	users    *userRepoMock
	roles    *roleRepoMock
	perms    *permissionRepoMock
	tokens   *tokenRepoMock
	audit    *auditRepoMock
	beginErr error
	calls    int
}

func (m *unitOfWorkMock) WithinTx(_ context.Context, fn func(repos port.TxRepositories) error) error {
	if m.beginErr != nil {
		return m.beginErr
	}
	m.calls++
	return fn(port.TxRepositories{
		Users:       m.users,
		Roles:       m.roles,
		Permissions: m.perms,
		Tokens:      m.tokens,
		Audit:       m.audit,
	})
}

type eventPublisherMock struct {
	registered      []domain.UserRegisteredEvent
	passwordChanged []domain.PasswordChangedEvent
	resetRequested  []domain.PasswordResetRequestedEvent
	rolesAssigned   []domain.RolesAssignedEvent
	rolesRevoked    []domain.RolesRevokedEvent
	sessionsRevoked []domain.SessionsRevokedEvent
	tokenRevoked    []domain.TokenRevokedEvent
	err             error
}

func (m *eventPublisherMock) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	if m.err != nil {
		return m.err
	}
	m.registered = append(m.registered, event)
	return nil
}

func (m *eventPublisherMock) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.passwordChanged = append(m.passwordChanged, event)
	return nil
}

func (m *eventPublisherMock) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.resetRequested = append(m.resetRequested, event)
	return nil
}

func (m *eventPublisherMock) PublishRolesAssigned(_ context.Context, event domain.RolesAssignedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.rolesAssigned = append(m.rolesAssigned, event)
	return nil
}

func (m *eventPublisherMock) PublishRolesRevoked(_ context.Context, event domain.RolesRevokedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.rolesRevoked = append(m.rolesRevoked, event)
	return nil
}

func (m *eventPublisherMock) PublishSessionsRevoked(_ context.Context, event domain.SessionsRevokedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.sessionsRevoked = append(m.sessionsRevoked, event)
	return nil
}

func (m *eventPublisherMock) PublishTokenRevoked(_ context.Context, event domain.TokenRevokedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.tokenRevoked = append(m.tokenRevoked, event)
	return nil
}

// engineMetricsMock records counter calls for assertion.
type engineMetricsMock struct {
	logins        map[string]int
	issued        int
	revoked       map[string]int
	auditFailures int
}

func newEngineMetricsMock() *engineMetricsMock {
	return &engineMetricsMock{
		logins:  make(map[string]int),
		revoked: make(map[string]int),
	}
}

func (m *engineMetricsMock) LoginAttempt(outcome string) { m.logins[outcome]++ }

func (m *engineMetricsMock) TokenIssued() { m.issued++ }

func (m *engineMetricsMock) TokenRevoked(scope string) { m.revoked[scope]++ }

func (m *engineMetricsMock) AuditWriteFailure() { m.auditFailures++ }

// staticKeyProvider signs and verifies with one in-memory RSA key.
type staticKeyProvider struct {
	key *rsa.PrivateKey
}

func (p staticKeyProvider) GetSigningKey() (*rsa.PrivateKey, error) {
	return p.key, nil
}

func (p staticKeyProvider) GetVerificationKey(_ string) (*rsa.PublicKey, error) {
	return &p.key.PublicKey, nil
}

var cachedTestKey *rsa.PrivateKey

func testSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	if cachedTestKey == nil {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate test key: %v", err)
		}
		cachedTestKey = key
	}
	return cachedTestKey
}

// manualClock is a controllable time source shared by every service in a
// fixture.
type manualClock struct {
	current time.Time
}

func (c *manualClock) Now() time.Time {
	return c.current
}

func (c *manualClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// serviceFixture wires every mock into the service graph under test.
type serviceFixture struct {
	cfg         *config.AppConfig
	clock       *manualClock
	users       *userRepoMock
	roles       *roleRepoMock
	perms       *permissionRepoMock
	resets      *tokenRepoMock
	audit       *auditRepoMock
	revocations *revocationStoreMock
	cache       *permissionCacheMock
	limits      *rateLimitStoreMock
	events      *eventPublisherMock
	metrics     *engineMetricsMock
	uow         *unitOfWorkMock
	tokens      *TokenService
	authz       *AuthorizationService
	audits      *AuditService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		cfg: &config.AppConfig{
			App: config.AppSettings{Name: "auth-engine-test"},
			JWT: config.JWTSettings{AccessTokenTTL: time.Hour},
			RateLimit: config.RateLimitSettings{
				WindowDuration:           15 * time.Minute,
				LoginMaxAttempts:         5,
				PasswordResetMaxAttempts: 3,
			},
		},
		clock:       &manualClock{current: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)},
		users:       newUserRepoMock(),
		roles:       newRoleRepoMock(),
		resets:      newTokenRepoMock(),
		audit:       &auditRepoMock{},
		revocations: newRevocationStoreMock(),
		cache:       newPermissionCacheMock(),
		limits:      newRateLimitStoreMock(),
		events:      &eventPublisherMock{},
		metrics:     newEngineMetricsMock(),
	}
	f.perms = newPermissionRepoMock(f.roles)
	f.uow = &unitOfWorkMock{
		users:  f.users,
		roles:  f.roles,
		perms:  f.perms,
		tokens: f.resets,
		audit:  f.audit,
	}

	provider := staticKeyProvider{key: testSigningKey(t)}
	manager := security.NewJWTManager(provider)

	f.tokens = NewTokenService(f.cfg, manager, "test-key", f.revocations, nil).
		WithClock(f.clock.Now).
		WithEvents(f.events).
		WithMetrics(f.metrics)
	f.authz = NewAuthorizationService(f.users, f.roles, f.perms, f.audit, nil).
		WithClock(f.clock.Now)
	f.audits = NewAuditService(f.audit, f.authz, nil).
		WithClock(f.clock.Now).
		WithMetrics(f.metrics)

	return f
}

func (f *serviceFixture) authService() *AuthService {
	return NewAuthService(f.cfg, f.users, f.roles, f.tokens, f.authz, f.audits, nil).
		WithRateLimiter(f.limits).
		WithMetrics(f.metrics).
		WithClock(f.clock.Now)
}

func (f *serviceFixture) registrationService() *RegistrationService {
	return NewRegistrationService(f.users, f.roles, f.uow, security.NewPasswordPolicy(), nil).
		WithEvents(f.events).
		WithClock(f.clock.Now)
}

func (f *serviceFixture) passwordResetService() *PasswordResetService {
	return NewPasswordResetService(f.cfg, f.users, f.resets, f.uow, security.NewPasswordPolicy(), f.tokens, f.audits, nil).
		WithRateLimiter(f.limits).
		WithEvents(f.events).
		WithClock(f.clock.Now)
}

func (f *serviceFixture) roleService() *RoleService {
	return NewRoleService(f.users, f.roles, f.perms, f.uow, f.authz, nil).
		WithEvents(f.events).
		WithClock(f.clock.Now)
}

func (f *serviceFixture) userService() *UserService {
	return NewUserService(f.users, f.uow, f.authz, f.tokens, security.NewPasswordPolicy(), nil).
		WithEvents(f.events).
		WithClock(f.clock.Now)
}

func (f *serviceFixture) seedUser(t *testing.T, email, password string, status domain.UserStatus) domain.User {
	t.Helper()

	hash := ""
	if password != "" {
		var err error
		hash, err = security.HashPassword(password)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
	}

	now := f.clock.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		PasswordAlgo: "argon2id",
		Status:       status,
		FirstName:    "Alex",
		LastName:     "Doe",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (f *serviceFixture) seedRole(t *testing.T, name string, keys ...domain.PermissionKey) domain.Role {
	t.Helper()
	ctx := context.Background()
	now := f.clock.Now().UTC()

	role, err := f.roles.GetByName(ctx, name)
	if err != nil {
		created := domain.Role{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
		if err := f.roles.Create(ctx, created); err != nil {
			t.Fatalf("seed role %s: %v", name, err)
		}
		role = &created
	}

	for _, key := range keys {
		perm, err := f.perms.GetByName(ctx, key.String())
		if err != nil {
			created := domain.Permission{
				ID:     uuid.NewString(),
				Name:   key.String(),
				Module: key.Module,
				Action: key.Action,
			}
			if err := f.perms.Create(ctx, created); err != nil {
				t.Fatalf("seed permission %s: %v", key, err)
			}
			perm = &created
		}
		grant := domain.RolePermission{RoleID: role.ID, PermissionID: perm.ID, GrantedAt: now}
		if _, err := f.perms.GrantToRole(ctx, grant); err != nil {
			t.Fatalf("grant permission %s: %v", key, err)
		}
	}

	return *role
}

func (f *serviceFixture) assignRole(t *testing.T, userID string, role domain.Role) {
	t.Helper()
	assignment := domain.UserRole{UserID: userID, RoleID: role.ID, AssignedAt: f.clock.Now().UTC()}
	if _, err := f.roles.AssignToUser(context.Background(), assignment); err != nil {
		t.Fatalf("assign role %s: %v", role.Name, err)
	}
}

// grantPermissions gives the user a dedicated role carrying the supplied
// permission keys.
func (f *serviceFixture) grantPermissions(t *testing.T, userID, roleName string, keys ...domain.PermissionKey) domain.Role {
	t.Helper()
	role := f.seedRole(t, roleName, keys...)
	f.assignRole(t, userID, role)
	return role
}

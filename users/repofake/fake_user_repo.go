package fakeuserrepo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (ur *FakeUserRepo) Upsert(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
	if prev, ok := ur.users[user.ID]; ok {
		delete(ur.emailIds, normaliseEmail(prev.Email))
	}
	ur.users[user.ID] = user.Clone()
	ur.emailIds[normaliseEmail(user.Email)] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[normaliseEmail(email)]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return ur.users[id].Clone(), nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (ur *FakeUserRepo) CountByTenant(_ context.Context, tenantID string) (int, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	n := 0
	for _, u := range ur.users {
		if u.HasTenant(tenantID) {
			n++
		}
	}
	return n, nil
}

func (ur *FakeUserRepo) SetBlocked(_ context.Context, id string, blocked bool) error {
	return ur.update(id, func(u *users.User) { u.Blocked = blocked })
}

func (ur *FakeUserRepo) SetVerified(_ context.Context, id string, verified bool) error {
	return ur.update(id, func(u *users.User) { u.Verified = verified })
}

func (ur *FakeUserRepo) SetLastLogin(_ context.Context, id string, at time.Time) error {
	return ur.update(id, func(u *users.User) { u.LastLogin = at })
}

func (ur *FakeUserRepo) update(id string, fn func(*users.User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	fn(u)
	return nil
}

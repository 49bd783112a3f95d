// Package users implements the user repository on top of the key-value
// store. Besides the identity record itself it maintains the username index
// record that makes usernames unique and enables lookup by username.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/storage"
	"github.com/google/uuid"
)

// SortKeyUser is the sort key of both the identity record and the username
// index record.
const SortKeyUser = "user"

// Repository is the persistence surface the authentication service uses.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUserID(ctx context.Context, userID string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Finish2FASetup(ctx context.Context, userID string) error
	RotateSigninChallenge(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, userID string) error
}

// StoreRepository is the Repository implementation over a storage.Store.
type StoreRepository struct {
	store storage.Store
}

func NewStoreRepository(store storage.Store) *StoreRepository {
	return &StoreRepository{store: store}
}

// Create persists the user. The username index record is written first with
// a uniqueness guard, so two concurrent signups for the same username
// cannot both succeed; the loser gets common.ErrUserExists.
func (r *StoreRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	indexDoc, err := json.Marshal(models.UsernameIndex{UserID: user.ID})
	if err != nil {
		return nil, fmt.Errorf("marshal error: %w", err)
	}

	err = r.store.Create(ctx, &storage.Item{ID: user.Username, SortKey: SortKeyUser, Doc: indexDoc})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrUserExists
		}
		return nil, fmt.Errorf("error creating username index: %w", err)
	}

	userDoc, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("marshal error: %w", err)
	}

	if err := r.store.Create(ctx, &storage.Item{ID: user.ID, SortKey: SortKeyUser, Doc: userDoc}); err != nil {
		// roll the index back so the username is not left claimed
		_ = r.store.Delete(ctx, user.Username, SortKeyUser)
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

func (r *StoreRepository) GetByUserID(ctx context.Context, userID string) (*models.User, error) {
	item, err := r.store.Get(ctx, userID, SortKeyUser)
	if err != nil {
		return nil, err
	}

	user := &models.User{}
	if err := json.Unmarshal(item.Doc, user); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	return user, nil
}

func (r *StoreRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	item, err := r.store.Get(ctx, username, SortKeyUser)
	if err != nil {
		return nil, err
	}

	index := &models.UsernameIndex{}
	if err := json.Unmarshal(item.Doc, index); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	return r.GetByUserID(ctx, index.UserID)
}

// Finish2FASetup flips the enabled flag. This is the only write path that
// activates second-factor enforcement.
func (r *StoreRepository) Finish2FASetup(ctx context.Context, userID string) error {
	return r.updateUser(ctx, userID, func(user *models.User) {
		user.TwoFactorEnabled = true
	})
}

// RotateSigninChallenge replaces the sign-in challenge with a fresh
// unguessable value and returns it. The previous challenge stops being
// valid the moment this returns.
func (r *StoreRepository) RotateSigninChallenge(ctx context.Context, userID string) (string, error) {
	challenge := uuid.NewString()
	err := r.updateUser(ctx, userID, func(user *models.User) {
		user.SigninChallenge = challenge
	})
	if err != nil {
		return "", err
	}
	return challenge, nil
}

// Delete removes the identity record and the username index record.
func (r *StoreRepository) Delete(ctx context.Context, userID string) error {
	user, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if err := r.store.Delete(ctx, userID, SortKeyUser); err != nil {
		return err
	}

	return r.store.Delete(ctx, user.Username, SortKeyUser)
}

func (r *StoreRepository) updateUser(ctx context.Context, userID string, mutate func(*models.User)) error {
	return r.store.Update(ctx, userID, SortKeyUser, func(item *storage.Item) error {
		user := &models.User{}
		if err := json.Unmarshal(item.Doc, user); err != nil {
			return fmt.Errorf("unmarshal error: %w", err)
		}

		mutate(user)
		user.UpdatedAt = time.Now().UnixMilli()

		doc, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		item.Doc = doc

		return nil
	})
}

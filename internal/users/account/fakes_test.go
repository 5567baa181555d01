// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package account

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/parley-chat/parley/internal/platform/dberr"
)

type contactRow struct {
	owner, other int64
	accepted     bool
}

type messageRow struct {
	sender, receiver int64
}

// memoryStore is an in-memory stand-in for the account, contact and message tables.
type memoryStore struct {
	accounts map[int64]*Account
	contacts []contactRow
	messages []messageRow
	nextUID  int64

	// calls records mutating statements in execution order.
	calls []string

	// fail makes the named operation return the error.
	fail map[string]error

	// insertNoRow makes Insert report no returned row.
	insertNoRow bool

	// hardDeleteNoop makes HardDelete report zero affected rows.
	hardDeleteNoop bool

	lastSearch SearchQuery
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts: map[int64]*Account{},
		fail:     map[string]error{},
		nextUID:  1,
	}
}

func (store *memoryStore) stores() Stores {
	return Stores{
		Accounts: store,
		Contacts: memoryContacts{store},
		Messages: memoryMessages{store},
	}
}

func (store *memoryStore) seed(account Account) *Account {
	if account.UID == 0 {
		account.UID = store.nextUID
	}
	if account.UID >= store.nextUID {
		store.nextUID = account.UID + 1
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	stored := account
	store.accounts[account.UID] = &stored
	return &stored
}

func (store *memoryStore) failure(operation string) error {
	return store.fail[operation]
}

func (store *memoryStore) FindByID(_ context.Context, uid int64) (*Account, error) {
	if err := store.failure("find_by_id"); err != nil {
		return nil, err
	}
	account, ok := store.accounts[uid]
	if !ok {
		return nil, fmt.Errorf("find: %w", dberr.ErrNotFound)
	}
	copied := *account
	return &copied, nil
}

func (store *memoryStore) FindByUsername(_ context.Context, username string) (*Account, error) {
	if err := store.failure("find_by_username"); err != nil {
		return nil, err
	}
	for _, account := range store.accounts {
		if account.Username == username {
			copied := *account
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("find: %w", dberr.ErrNotFound)
}

func (store *memoryStore) Insert(_ context.Context, input NewAccount) (*Account, error) {
	if err := store.failure("insert"); err != nil {
		return nil, err
	}
	if store.insertNoRow {
		return nil, ErrNotInserted
	}
	for _, account := range store.accounts {
		if account.Username == input.Username {
			return nil, ErrUsernameTaken
		}
	}
	store.calls = append(store.calls, "insert")
	return store.seed(Account{
		Username:       input.Username,
		PasswordHash:   input.PasswordHash,
		DisplayName:    input.DisplayName,
		PublicKey:      input.PublicKey,
		ShadowMode:     input.ShadowMode,
		FullNameSearch: input.FullNameSearch,
	}), nil
}

func (store *memoryStore) Update(_ context.Context, uid int64, patch Patch) (*Account, error) {
	if err := store.failure("update"); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	account, ok := store.accounts[uid]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	if username, ok := patch.Username.Get(); ok {
		for _, other := range store.accounts {
			if other.UID != uid && other.Username == username {
				return nil, ErrUsernameTaken
			}
		}
		account.Username = username
	}
	if value, ok := patch.PasswordHash.Get(); ok {
		account.PasswordHash = value
	}
	if value, ok := patch.DisplayName.Get(); ok {
		account.DisplayName = value
	}
	if value, ok := patch.PublicKey.Get(); ok {
		account.PublicKey = value
	}
	if value, ok := patch.ShadowMode.Get(); ok {
		account.ShadowMode = value
	}
	if value, ok := patch.FullNameSearch.Get(); ok {
		account.FullNameSearch = value
	}
	store.calls = append(store.calls, "update")
	copied := *account
	return &copied, nil
}

func (store *memoryStore) SoftDelete(_ context.Context, uid int64) error {
	if err := store.failure("soft_delete"); err != nil {
		return err
	}
	account, ok := store.accounts[uid]
	if !ok {
		return dberr.ErrNotFound
	}
	account.IsDeleted = true
	store.calls = append(store.calls, "soft_delete")
	return nil
}

func (store *memoryStore) HardDelete(_ context.Context, uid int64) (int64, error) {
	if err := store.failure("hard_delete"); err != nil {
		return 0, err
	}
	store.calls = append(store.calls, "hard_delete")
	if store.hardDeleteNoop {
		return 0, nil
	}
	if _, ok := store.accounts[uid]; !ok {
		return 0, nil
	}
	delete(store.accounts, uid)
	return 1, nil
}

func (store *memoryStore) Search(_ context.Context, query SearchQuery) ([]Summary, error) {
	if err := store.failure("search"); err != nil {
		return nil, err
	}
	store.lastSearch = query

	// Visibility rules live in the SQL and are covered by the repository tests.
	needle := strings.ToLower(query.Text)
	var hits []Summary
	for _, account := range store.accounts {
		if strings.Contains(strings.ToLower(account.Username), needle) {
			hits = append(hits, Summary{
				UID:         account.UID,
				Username:    account.Username,
				DisplayName: account.DisplayName,
				CreatedAt:   account.CreatedAt,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Username < hits[j].Username })
	if len(hits) > query.Limit {
		hits = hits[:query.Limit]
	}
	return hits, nil
}

type memoryContacts struct{ store *memoryStore }

func (contacts memoryContacts) DeleteForUser(_ context.Context, uid int64) (int64, error) {
	if err := contacts.store.failure("delete_contacts"); err != nil {
		return 0, err
	}
	contacts.store.calls = append(contacts.store.calls, "delete_contacts")
	kept := contacts.store.contacts[:0]
	var removed int64
	for _, row := range contacts.store.contacts {
		if row.owner == uid || row.other == uid {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	contacts.store.contacts = kept
	return removed, nil
}

func (contacts memoryContacts) IsAccepted(_ context.Context, ownerUID, otherUID int64) (bool, error) {
	if err := contacts.store.failure("is_accepted"); err != nil {
		return false, err
	}
	for _, row := range contacts.store.contacts {
		if row.owner == ownerUID && row.other == otherUID && row.accepted {
			return true, nil
		}
	}
	return false, nil
}

type memoryMessages struct{ store *memoryStore }

func (messages memoryMessages) DeleteForUser(_ context.Context, uid int64) (int64, error) {
	if err := messages.store.failure("delete_messages"); err != nil {
		return 0, err
	}
	messages.store.calls = append(messages.store.calls, "delete_messages")
	kept := messages.store.messages[:0]
	var removed int64
	for _, row := range messages.store.messages {
		if row.sender == uid || row.receiver == uid {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	messages.store.messages = kept
	return removed, nil
}

// failingHasher reports errors from both operations.
type failingHasher struct{ err error }

func (hasher failingHasher) Hash(string) (string, error)         { return "", hasher.err }
func (hasher failingHasher) Verify(string, string) (bool, error) { return false, hasher.err }

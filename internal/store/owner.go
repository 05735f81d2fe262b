package store

import (
	"encoding/json"
	"fmt"
	"slices"

	"movecar/internal/model"
)

// OwnerStore persists Owner records and maintains the userID -> owner IDs
// index used by the account dashboard. Owners have no TTL.
type OwnerStore struct {
	kv *KV
}

func NewOwnerStore(kv *KV) *OwnerStore {
	return &OwnerStore{kv: kv}
}

// Create allocates a unique share code for o, writes the record, and adds
// it to the owning user's index when o.UserID is set. Returns
// ErrIDSpaceExhausted if no free code is found within the retry cap.
func (s *OwnerStore) Create(o *model.Owner) error {
	id, err := uniqueID(ownerIDLength, func(id string) (bool, error) {
		return s.kv.Exists(nsOwner, id)
	})
	if err != nil {
		return err
	}
	o.ID = id

	if err := s.put(o); err != nil {
		return err
	}
	if o.UserID != "" {
		return s.addToUserIndex(o.UserID, o.ID)
	}
	return nil
}

// Get returns the owner with the given share code, or nil if absent.
func (s *OwnerStore) Get(id string) (*model.Owner, error) {
	data, err := s.kv.Get(nsOwner, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var o model.Owner
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode owner %s: %w", id, err)
	}
	return &o, nil
}

// Update rewrites an existing owner record in place.
func (s *OwnerStore) Update(o *model.Owner) error {
	return s.put(o)
}

// Delete removes the owner and its entry in the owning user's index.
// Requests referencing the owner are left to expire on their own TTL.
func (s *OwnerStore) Delete(id string) error {
	o, err := s.Get(id)
	if err != nil {
		return err
	}
	if o == nil {
		return nil
	}
	if err := s.kv.Delete(nsOwner, id); err != nil {
		return err
	}
	if o.UserID != "" {
		return s.removeFromUserIndex(o.UserID, id)
	}
	return nil
}

// ListByUser returns the owners linked to a user, skipping index entries
// whose records have been deleted.
func (s *OwnerStore) ListByUser(userID string) ([]*model.Owner, error) {
	ids, err := s.userIndex(userID)
	if err != nil {
		return nil, err
	}
	owners := make([]*model.Owner, 0, len(ids))
	for _, id := range ids {
		o, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if o != nil {
			owners = append(owners, o)
		}
	}
	return owners, nil
}

func (s *OwnerStore) put(o *model.Owner) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode owner %s: %w", o.ID, err)
	}
	return s.kv.Put(nsOwner, o.ID, data, 0)
}

func (s *OwnerStore) userIndex(userID string) ([]string, error) {
	data, err := s.kv.Get(nsUserOwners, userID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode owner index for user %s: %w", userID, err)
	}
	return ids, nil
}

func (s *OwnerStore) writeUserIndex(userID string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode owner index for user %s: %w", userID, err)
	}
	return s.kv.Put(nsUserOwners, userID, data, 0)
}

func (s *OwnerStore) addToUserIndex(userID, ownerID string) error {
	ids, err := s.userIndex(userID)
	if err != nil {
		return err
	}
	if slices.Contains(ids, ownerID) {
		return nil
	}
	return s.writeUserIndex(userID, append(ids, ownerID))
}

func (s *OwnerStore) removeFromUserIndex(userID, ownerID string) error {
	ids, err := s.userIndex(userID)
	if err != nil {
		return err
	}
	filtered := slices.DeleteFunc(ids, func(id string) bool { return id == ownerID })
	return s.writeUserIndex(userID, filtered)
}

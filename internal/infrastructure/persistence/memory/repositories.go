package memory

import (
	"context"
	"sort"
	"time"

	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

// DefinitionRepository implements reward.DefinitionRepository.
type DefinitionRepository struct {
	sc scope
}

// GetByID implements reward.Catalog.
func (r *DefinitionRepository) GetByID(_ context.Context, id string) (*reward.Definition, error) {
	var out *reward.Definition
	err := r.sc.read(func(st *state) error {
		def, ok := st.definitions[id]
		if !ok {
			return shared.ErrRewardNotFound
		}
		out = def.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate implements reward.DefinitionRepository. Transactions are
// already serialized, so it is a plain read.
func (r *DefinitionRepository) GetForUpdate(ctx context.Context, id string) (*reward.Definition, error) {
	return r.GetByID(ctx, id)
}

// List implements reward.Catalog.
func (r *DefinitionRepository) List(_ context.Context, filter reward.Filter) ([]*reward.Definition, error) {
	var out []*reward.Definition
	err := r.sc.read(func(st *state) error {
		for _, def := range st.definitions {
			if filter.Matches(def) {
				out = append(out, def.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Offset, filter.Limit), nil
}

// Create implements reward.DefinitionRepository.
func (r *DefinitionRepository) Create(_ context.Context, def *reward.Definition) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.definitions[def.ID]; ok {
			return shared.ErrRewardExists
		}
		st.definitions[def.ID] = def.Clone()
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// AWARDS
// ══════════════════════════════════════════════════════════════════════════════

// AwardRepository implements reward.AwardRepository.
type AwardRepository struct {
	sc scope
}

// Get implements reward.AwardRepository.
func (r *AwardRepository) Get(_ context.Context, userID, rewardID string) (*reward.AwardRecord, error) {
	var out *reward.AwardRecord
	err := r.sc.read(func(st *state) error {
		rec, ok := st.awards[awardKey{userID, rewardID}]
		if !ok {
			return shared.ErrAwardNotFound
		}
		out = rec.Clone()
		return nil
	})
	return out, err
}

// GetForUpdate implements reward.AwardRepository.
func (r *AwardRepository) GetForUpdate(ctx context.Context, userID, rewardID string) (*reward.AwardRecord, error) {
	return r.Get(ctx, userID, rewardID)
}

// Save implements reward.AwardRepository.
func (r *AwardRepository) Save(_ context.Context, rec *reward.AwardRecord) error {
	return r.sc.write(func(st *state) error {
		st.awards[awardKey{rec.UserID, rec.RewardID}] = rec.Clone()
		return nil
	})
}

// ListByUser implements reward.AwardRepository.
func (r *AwardRepository) ListByUser(_ context.Context, userID string) ([]*reward.AwardRecord, error) {
	var out []*reward.AwardRecord
	err := r.sc.read(func(st *state) error {
		for k, rec := range st.awards {
			if k.userID == userID {
				out = append(out, rec.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateAwarded.Equal(out[j].DateAwarded) {
			return out[i].DateAwarded.After(out[j].DateAwarded)
		}
		return out[i].RewardID < out[j].RewardID
	})
	return out, nil
}

// CountByReward implements reward.AwardRepository.
func (r *AwardRepository) CountByReward(_ context.Context, rewardID string) (int, error) {
	n := 0
	err := r.sc.read(func(st *state) error {
		for k := range st.awards {
			if k.rewardID == rewardID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ListExpirable implements reward.AwardRepository.
func (r *AwardRepository) ListExpirable(_ context.Context, now time.Time, limit int) ([]*reward.AwardRecord, error) {
	var out []*reward.AwardRecord
	err := r.sc.read(func(st *state) error {
		for _, rec := range st.awards {
			if rec.IsExpired(now) {
				out = append(out, rec.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(*out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
		}
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].RewardID < out[j].RewardID
	})
	return page(out, 0, limit), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository implements progress.LedgerRepository.
type LedgerRepository struct {
	sc scope
}

// Get implements progress.LedgerRepository.
func (r *LedgerRepository) Get(_ context.Context, userID string) (*progress.LedgerEntry, error) {
	var out *progress.LedgerEntry
	err := r.sc.read(func(st *state) error {
		entry, ok := st.ledger[userID]
		if !ok {
			return shared.ErrLedgerNotFound
		}
		out = entry.Clone()
		return nil
	})
	return out, err
}

// Save implements progress.LedgerRepository.
func (r *LedgerRepository) Save(_ context.Context, entry *progress.LedgerEntry) error {
	return r.sc.write(func(st *state) error {
		current, ok := st.ledger[entry.UserID]
		switch {
		case entry.IsNew() && ok:
			return shared.ErrLedgerConflict
		case !entry.IsNew() && (!ok || current.Version != entry.Version):
			return shared.ErrLedgerConflict
		}

		entry.Version++
		st.ledger[entry.UserID] = entry.Clone()
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITIES
// ══════════════════════════════════════════════════════════════════════════════

// ActivityRepository implements progress.ActivityRepository.
type ActivityRepository struct {
	sc scope
}

// Append implements progress.ActivityRepository.
func (r *ActivityRepository) Append(_ context.Context, log *progress.ActivityLog) error {
	return r.sc.write(func(st *state) error {
		for _, existing := range st.activities {
			if existing.ID == log.ID {
				return shared.NewDomainError("activity", "Append", shared.ErrAlreadyExists, "activity log already exists")
			}
		}
		c := *log
		st.activities = append(st.activities, &c)
		return nil
	})
}

// ListByUser implements progress.ActivityRepository.
func (r *ActivityRepository) ListByUser(_ context.Context, userID string, limit int) ([]*progress.ActivityLog, error) {
	var out []*progress.ActivityLog
	err := r.sc.read(func(st *state) error {
		// Newest first; appends are chronological.
		for i := len(st.activities) - 1; i >= 0; i-- {
			if st.activities[i].UserID == userID {
				c := *st.activities[i]
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, 0, limit), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository.
type UserRepository struct {
	sc scope
}

// Exists implements user.Directory.
func (r *UserRepository) Exists(_ context.Context, id string) (bool, error) {
	var ok bool
	err := r.sc.read(func(st *state) error {
		_, ok = st.users[id]
		return nil
	})
	return ok, err
}

// GetByID implements user.Directory.
func (r *UserRepository) GetByID(_ context.Context, id string) (*user.User, error) {
	var out *user.User
	err := r.sc.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return shared.ErrUserNotFound
		}
		c := *u
		out = &c
		return nil
	})
	return out, err
}

// Create implements user.Repository.
func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.users[u.ID]; ok {
			return shared.NewDomainError("user", "Create", shared.ErrAlreadyExists, "user already exists")
		}
		c := *u
		st.users[u.ID] = &c
		return nil
	})
}

// page applies offset and limit; limit <= 0 means no limit.
func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var (
	_ reward.DefinitionRepository = (*DefinitionRepository)(nil)
	_ reward.AwardRepository      = (*AwardRepository)(nil)
	_ progress.LedgerRepository   = (*LedgerRepository)(nil)
	_ progress.ActivityRepository = (*ActivityRepository)(nil)
	_ user.Repository             = (*UserRepository)(nil)
)

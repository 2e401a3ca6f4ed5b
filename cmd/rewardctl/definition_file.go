package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/learnquest/rewards-engine/internal/domain/reward"
)

// definitionFile is the TOML form of a reward definition:
//
//	id = "save-10"
//	name = "Save 10%"
//	type = "DISCOUNT"
//	trigger = "LEVEL_UP"
//	is_active = true
//	expiration_days = 30
//
//	[value]
//	percentage = 10
//	code = "SAVE10"
//
// POINTS rewards use a bare integer: value = 50.
type definitionFile struct {
	ID              string     `toml:"id"`
	Name            string     `toml:"name"`
	Description     string     `toml:"description"`
	Type            string     `toml:"type"`
	Trigger         string     `toml:"trigger"`
	PointsCost      int64      `toml:"points_cost"`
	Value           any        `toml:"value"`
	IsLimited       bool       `toml:"is_limited"`
	LimitedQuantity *int       `toml:"limited_quantity"`
	StartDate       *time.Time `toml:"start_date"`
	EndDate         *time.Time `toml:"end_date"`
	IsSecret        bool       `toml:"is_secret"`
	IsActive        *bool      `toml:"is_active"`
	ExpirationDays  *int       `toml:"expiration_days"`
}

// decodeDefinitionFile reads a TOML definition into creation params.
func decodeDefinitionFile(path string) (reward.DefinitionParams, error) {
	var f definitionFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return reward.DefinitionParams{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return reward.DefinitionParams{}, fmt.Errorf("decode %s: unknown key %s", path, undecoded[0])
	}
	return f.params()
}

func (f definitionFile) params() (reward.DefinitionParams, error) {
	typ, ok := reward.ParseType(f.Type)
	if !ok {
		return reward.DefinitionParams{}, fmt.Errorf("unknown reward type %q", f.Type)
	}
	trig, ok := reward.ParseTrigger(f.Trigger)
	if !ok {
		return reward.DefinitionParams{}, fmt.Errorf("unknown trigger %q", f.Trigger)
	}

	val, err := decodeValue(typ, f.Value)
	if err != nil {
		return reward.DefinitionParams{}, err
	}

	active := true
	if f.IsActive != nil {
		active = *f.IsActive
	}

	return reward.DefinitionParams{
		ID:              f.ID,
		Name:            f.Name,
		Description:     f.Description,
		Type:            typ,
		Trigger:         trig,
		PointsCost:      f.PointsCost,
		Value:           val,
		IsLimited:       f.IsLimited,
		LimitedQuantity: f.LimitedQuantity,
		StartDate:       f.StartDate,
		EndDate:         f.EndDate,
		IsSecret:        f.IsSecret,
		IsActive:        active,
		ExpirationDays:  f.ExpirationDays,
	}, nil
}

// decodeValue routes the raw TOML value through the tagged JSON envelope so
// the payload is validated exactly like stored values.
func decodeValue(typ reward.Type, raw any) (reward.Value, error) {
	if raw == nil {
		return nil, fmt.Errorf("value is required for %s rewards", typ)
	}
	inner, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	env, err := json.Marshal(struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}{Type: typ.Tag(), Value: inner})
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return reward.UnmarshalValue(env)
}

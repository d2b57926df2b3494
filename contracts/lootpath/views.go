package lootpath

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BattlePassInfo is the getBattlePassInfo view.
type BattlePassInfo struct {
	Name        string
	Description string
	TotalTiers  uint64
	IsActive    bool
	Owner       common.Address
	StartTime   time.Time
	EndTime     time.Time
	Intent      []byte
}

// PlayerProgress is the getPlayerProgress view. ExperienceRoot is the
// reference of the player's latest sealed experience total.
type PlayerProgress struct {
	ExperienceRoot common.Hash
	Grants         uint64
	RewardsClaimed uint64
	IsActive       bool
	LastUpdate     time.Time
}

func unix(t time.Time) *big.Int {
	if t.IsZero() {
		return new(big.Int)
	}
	return big.NewInt(t.Unix())
}

func fromUnix(v *big.Int) time.Time {
	if v.Sign() == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}

// PackCreatedPass encodes the createBattlePass return value.
func PackCreatedPass(id uint64) ([]byte, error) {
	return contractABI.Methods[MethodCreateBattlePass].Outputs.Pack(u256(id))
}

// UnpackCreatedPass decodes the createBattlePass return value.
func UnpackCreatedPass(ret []byte) (uint64, error) {
	values, err := contractABI.Unpack(MethodCreateBattlePass, ret)
	if err != nil {
		return 0, err
	}
	return values[0].(*big.Int).Uint64(), nil
}

// PackBattlePassInfo encodes a getBattlePassInfo return value.
func PackBattlePassInfo(info BattlePassInfo) ([]byte, error) {
	return contractABI.Methods[MethodGetBattlePassInfo].Outputs.Pack(
		info.Name,
		info.Description,
		u256(info.TotalTiers),
		info.IsActive,
		info.Owner,
		unix(info.StartTime),
		unix(info.EndTime),
		info.Intent,
	)
}

// UnpackBattlePassInfo decodes a getBattlePassInfo return value.
func UnpackBattlePassInfo(ret []byte) (BattlePassInfo, error) {
	values, err := contractABI.Unpack(MethodGetBattlePassInfo, ret)
	if err != nil {
		return BattlePassInfo{}, err
	}
	return BattlePassInfo{
		Name:        values[0].(string),
		Description: values[1].(string),
		TotalTiers:  values[2].(*big.Int).Uint64(),
		IsActive:    values[3].(bool),
		Owner:       values[4].(common.Address),
		StartTime:   fromUnix(values[5].(*big.Int)),
		EndTime:     fromUnix(values[6].(*big.Int)),
		Intent:      values[7].([]byte),
	}, nil
}

// PackPlayerProgress encodes a getPlayerProgress return value.
func PackPlayerProgress(p PlayerProgress) ([]byte, error) {
	return contractABI.Methods[MethodGetPlayerProgress].Outputs.Pack(
		[32]byte(p.ExperienceRoot),
		u256(p.Grants),
		u256(p.RewardsClaimed),
		p.IsActive,
		unix(p.LastUpdate),
	)
}

// UnpackPlayerProgress decodes a getPlayerProgress return value.
func UnpackPlayerProgress(ret []byte) (PlayerProgress, error) {
	values, err := contractABI.Unpack(MethodGetPlayerProgress, ret)
	if err != nil {
		return PlayerProgress{}, err
	}
	return PlayerProgress{
		ExperienceRoot: common.Hash(values[0].([32]byte)),
		Grants:         values[1].(*big.Int).Uint64(),
		RewardsClaimed: values[2].(*big.Int).Uint64(),
		IsActive:       values[3].(bool),
		LastUpdate:     fromUnix(values[4].(*big.Int)),
	}, nil
}

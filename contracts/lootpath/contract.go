// Package lootpath holds the SecretLootPath contract ABI: method selectors,
// calldata packing for the ledger collaborator, and selector dispatch for
// the simulated chain that executes it.
package lootpath

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ContractAddress is where the simulated chain deploys SecretLootPath.
	ContractAddress = common.HexToAddress("0x5ec2e71007000000000000000000000000000000")

	// ContractABI is the JSON ABI of SecretLootPath.
	ContractABI = `[
	{"inputs":[{"name":"_name","type":"string"},{"name":"_description","type":"string"},{"name":"_totalTiers","type":"uint256"},{"name":"_duration","type":"uint256"},{"name":"_intent","type":"bytes"}],
	 "name":"createBattlePass","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"passId","type":"uint256"},{"name":"experience","type":"bytes"},{"name":"inputProof","type":"bytes"}],
	 "name":"gainExperience","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"rewardId","type":"uint256"},{"name":"passId","type":"uint256"}],
	 "name":"claimReward","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"passId","type":"uint256"}],
	 "name":"getBattlePassInfo","outputs":[{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"totalTiers","type":"uint256"},{"name":"isActive","type":"bool"},{"name":"passOwner","type":"address"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"},{"name":"intent","type":"bytes"}],
	 "stateMutability":"view","type":"function"},
	{"inputs":[{"name":"passId","type":"uint256"},{"name":"player","type":"address"}],
	 "name":"getPlayerProgress","outputs":[{"name":"experienceRoot","type":"bytes32"},{"name":"grants","type":"uint256"},{"name":"rewardsClaimed","type":"uint256"},{"name":"isActive","type":"bool"},{"name":"lastUpdate","type":"uint256"}],
	 "stateMutability":"view","type":"function"}
]`
)

// Method names.
const (
	MethodCreateBattlePass  = "createBattlePass"
	MethodGainExperience    = "gainExperience"
	MethodClaimReward       = "claimReward"
	MethodGetBattlePassInfo = "getBattlePassInfo"
	MethodGetPlayerProgress = "getPlayerProgress"
)

var (
	createBattlePassMethodID  []byte // createBattlePass(string,string,uint256,uint256,bytes)
	gainExperienceMethodID    []byte // gainExperience(uint256,bytes,bytes)
	claimRewardMethodID       []byte // claimReward(uint256,uint256)
	getBattlePassInfoMethodID []byte // getBattlePassInfo(uint256)
	getPlayerProgressMethodID []byte // getPlayerProgress(uint256,address)

	contractABI abi.ABI
)

// ErrUnknownMethod is returned by Decode for calldata whose selector
// matches no SecretLootPath method.
var ErrUnknownMethod = errors.New("unknown SecretLootPath method")

func init() {
	var err error
	contractABI, err = abi.JSON(strings.NewReader(ContractABI))
	if err != nil {
		panic(err)
	}

	for name, constID := range map[string]*[]byte{
		MethodCreateBattlePass:  &createBattlePassMethodID,
		MethodGainExperience:    &gainExperienceMethodID,
		MethodClaimReward:       &claimRewardMethodID,
		MethodGetBattlePassInfo: &getBattlePassInfoMethodID,
		MethodGetPlayerProgress: &getPlayerProgressMethodID,
	} {
		method, exist := contractABI.Methods[name]
		if !exist {
			panic("unknown SecretLootPath method " + name)
		}
		*constID = make([]byte, len(method.ID))
		copy(*constID, method.ID)
	}
}

// Selector returns the 4-byte method ID for name.
func Selector(name string) []byte {
	m, ok := contractABI.Methods[name]
	if !ok {
		return nil
	}
	return common.CopyBytes(m.ID)
}

func u256(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// PackCreateBattlePass encodes createBattlePass calldata. duration is sent in
// whole seconds.
func PackCreateBattlePass(name, description string, totalTiers uint32, duration time.Duration, intent []byte) ([]byte, error) {
	return contractABI.Pack(MethodCreateBattlePass, name, description, u256(uint64(totalTiers)), u256(uint64(duration/time.Second)), intent)
}

// PackGainExperience encodes gainExperience calldata. experience and proof
// are the binary forms of the sealed amount and its add proof.
func PackGainExperience(pass uint64, experience, proof []byte) ([]byte, error) {
	return contractABI.Pack(MethodGainExperience, u256(pass), experience, proof)
}

// PackClaimReward encodes claimReward calldata.
func PackClaimReward(reward, pass uint64) ([]byte, error) {
	return contractABI.Pack(MethodClaimReward, u256(reward), u256(pass))
}

// PackGetBattlePassInfo encodes the getBattlePassInfo view call.
func PackGetBattlePassInfo(pass uint64) ([]byte, error) {
	return contractABI.Pack(MethodGetBattlePassInfo, u256(pass))
}

// PackGetPlayerProgress encodes the getPlayerProgress view call.
func PackGetPlayerProgress(pass uint64, player common.Address) ([]byte, error) {
	return contractABI.Pack(MethodGetPlayerProgress, u256(pass), player)
}

// CreateBattlePassArgs are the decoded createBattlePass arguments.
type CreateBattlePassArgs struct {
	Name        string
	Description string
	TotalTiers  uint64
	Duration    time.Duration
	Intent      []byte
}

// GainExperienceArgs are the decoded gainExperience arguments.
type GainExperienceArgs struct {
	Pass       uint64
	Experience []byte
	Proof      []byte
}

// ClaimRewardArgs are the decoded claimReward arguments.
type ClaimRewardArgs struct {
	Reward uint64
	Pass   uint64
}

// GetPlayerProgressArgs are the decoded getPlayerProgress arguments.
type GetPlayerProgressArgs struct {
	Pass   uint64
	Player common.Address
}

// Call is decoded calldata. Exactly one argument field is set, matching
// Method.
type Call struct {
	Method            string
	CreateBattlePass  *CreateBattlePassArgs
	GainExperience    *GainExperienceArgs
	ClaimReward       *ClaimRewardArgs
	GetBattlePassInfo *uint64
	GetPlayerProgress *GetPlayerProgressArgs
}

// Decode dispatches calldata on its selector and unpacks the arguments.
func Decode(input []byte) (call Call, err error) {
	if len(input) < 4 {
		return Call{}, ErrUnknownMethod
	}
	selector := input[:4]
	method, err := contractABI.MethodById(selector)
	if err != nil {
		return Call{}, ErrUnknownMethod
	}
	values, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return Call{}, fmt.Errorf("%s: %w", method.Name, err)
	}

	// Unpack returns the ABI Go types; a mismatch means the ABI above changed.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: unexpected argument types: %v", method.Name, r)
		}
	}()

	call.Method = method.Name
	switch {
	case bytes.Equal(selector, createBattlePassMethodID):
		call.CreateBattlePass = &CreateBattlePassArgs{
			Name:        values[0].(string),
			Description: values[1].(string),
			TotalTiers:  uint64Of(values[2]),
			Duration:    time.Duration(uint64Of(values[3])) * time.Second,
			Intent:      values[4].([]byte),
		}
	case bytes.Equal(selector, gainExperienceMethodID):
		call.GainExperience = &GainExperienceArgs{
			Pass:       uint64Of(values[0]),
			Experience: values[1].([]byte),
			Proof:      values[2].([]byte),
		}
	case bytes.Equal(selector, claimRewardMethodID):
		call.ClaimReward = &ClaimRewardArgs{
			Reward: uint64Of(values[0]),
			Pass:   uint64Of(values[1]),
		}
	case bytes.Equal(selector, getBattlePassInfoMethodID):
		pass := uint64Of(values[0])
		call.GetBattlePassInfo = &pass
	case bytes.Equal(selector, getPlayerProgressMethodID):
		call.GetPlayerProgress = &GetPlayerProgressArgs{
			Pass:   uint64Of(values[0]),
			Player: values[1].(common.Address),
		}
	}
	return call, nil
}

func uint64Of(v interface{}) uint64 {
	b := v.(*big.Int)
	if !b.IsUint64() {
		panic("uint256 argument exceeds 64 bits")
	}
	return b.Uint64()
}

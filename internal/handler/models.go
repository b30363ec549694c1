package handler

import (
	"fmt"
	"time"

	"github.com/blues/launchpad/internal/confidential"
	"github.com/blues/launchpad/internal/issuer"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// EncryptedInput 客户端加密输入，字段为 0x 前缀的十六进制
type EncryptedInput struct {
	Ciphertext string `json:"ciphertext" binding:"required"`
	Proof      string `json:"proof" binding:"required"`
}

func (in EncryptedInput) decode() (confidential.ExternalInput, error) {
	ct, err := hexutil.Decode(in.Ciphertext)
	if err != nil {
		return confidential.ExternalInput{}, fmt.Errorf("ciphertext: %w", err)
	}
	proof, err := hexutil.Decode(in.Proof)
	if err != nil {
		return confidential.ExternalInput{}, fmt.Errorf("proof: %w", err)
	}
	return confidential.ExternalInput{Ciphertext: ct, Proof: proof}, nil
}

// 登记相关模型

// RegisterRequest 登记集合请求
type RegisterRequest struct {
	Collection string `json:"collection" binding:"required"`
	Creator    string `json:"creator" binding:"required"`
}

// CollectionResponse 登记记录响应
type CollectionResponse struct {
	Collection   string    `json:"collection"`
	Creator      string    `json:"creator"`
	RegisteredAt time.Time `json:"registeredAt"`
}

func toCollectionResponse(e registry.Entry) CollectionResponse {
	return CollectionResponse{
		Collection:   e.Collection,
		Creator:      e.Creator.Hex(),
		RegisteredAt: e.RegisteredAt,
	}
}

// 发售相关模型

// CreateLaunchRequest 创建发售请求
type CreateLaunchRequest struct {
	Collection   string         `json:"collection" binding:"required"`
	TotalSupply  uint64         `json:"totalSupply"`
	StartTime    time.Time      `json:"startTime" binding:"required"`
	EndTime      time.Time      `json:"endTime" binding:"required"`
	Price        EncryptedInput `json:"price" binding:"required"`
	PaymentAsset string         `json:"paymentAsset"`
}

// PurchaseRequest 购买请求
type PurchaseRequest struct {
	Units EncryptedInput `json:"units" binding:"required"`
}

// LaunchResponse 发售响应模型，金额字段只返回密文句柄
type LaunchResponse struct {
	ID             uint64     `json:"id"`
	Collection     string     `json:"collection"`
	Creator        string     `json:"creator"`
	TotalSupply    uint64     `json:"totalSupply"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        time.Time  `json:"endTime"`
	ReservePrice   string     `json:"reservePrice"`
	TotalRaised    string     `json:"totalRaised"`
	TotalUnitsSold string     `json:"totalUnitsSold"`
	PaymentAsset   string     `json:"paymentAsset"`
	FeeBasisPoints uint32     `json:"feeBasisPoints"`
	State          string     `json:"state"`
	Purchases      uint64     `json:"purchases"`
	CreatedAt      time.Time  `json:"createdAt"`
	FinalizedAt    *time.Time `json:"finalizedAt,omitempty"`
}

func toLaunchResponse(l *ledger.Launch) LaunchResponse {
	return LaunchResponse{
		ID:             l.ID,
		Collection:     l.Collection,
		Creator:        l.Creator.Hex(),
		TotalSupply:    l.TotalSupply,
		StartTime:      l.StartTime,
		EndTime:        l.EndTime,
		ReservePrice:   string(l.ReservePrice),
		TotalRaised:    string(l.TotalRaised),
		TotalUnitsSold: string(l.TotalUnitsSold),
		PaymentAsset:   l.PaymentAsset,
		FeeBasisPoints: l.FeeBasisPoints,
		State:          string(l.State),
		Purchases:      l.Purchases,
		CreatedAt:      l.CreatedAt,
		FinalizedAt:    l.FinalizedAt,
	}
}

// ParticipationResponse 参与记录响应模型
type ParticipationResponse struct {
	LaunchID    uint64     `json:"launchId"`
	Participant string     `json:"participant"`
	AmountPaid  string     `json:"amountPaid"`
	UnitsBought string     `json:"unitsBought"`
	Purchases   uint32     `json:"purchases"`
	Claimed     bool       `json:"claimed"`
	ClaimedAt   *time.Time `json:"claimedAt,omitempty"`
}

func toParticipationResponse(p *ledger.Participation) ParticipationResponse {
	return ParticipationResponse{
		LaunchID:    p.LaunchID,
		Participant: p.Participant.Hex(),
		AmountPaid:  string(p.AmountPaid),
		UnitsBought: string(p.UnitsBought),
		Purchases:   p.Purchases,
		Claimed:     p.Claimed,
		ClaimedAt:   p.ClaimedAt,
	}
}

// PositionResponse 解密后的仓位
type PositionResponse struct {
	LaunchID    uint64 `json:"launchId"`
	Participant string `json:"participant"`
	AmountPaid  uint64 `json:"amountPaid"`
	UnitsBought uint64 `json:"unitsBought"`
	Claimed     bool   `json:"claimed"`
}

// TotalsResponse 解密后的汇总
type TotalsResponse struct {
	LaunchID       uint64 `json:"launchId"`
	TotalRaised    uint64 `json:"totalRaised"`
	TotalUnitsSold uint64 `json:"totalUnitsSold"`
}

// ClaimResponse 领取结果
type ClaimResponse struct {
	LaunchID uint64 `json:"launchId"`
	Granted  uint64 `json:"granted"`
}

// EventResponse 生命周期事件
type EventResponse struct {
	Type        string     `json:"type"`
	LaunchID    uint64     `json:"launchId"`
	Address     string     `json:"address,omitempty"`
	Collection  string     `json:"collection,omitempty"`
	TotalSupply uint64     `json:"totalSupply,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Count       uint64     `json:"count,omitempty"`
	OccurredAt  time.Time  `json:"occurredAt"`
}

func toEventResponse(e ledger.Event) EventResponse {
	r := EventResponse{
		Type:        string(e.Type),
		LaunchID:    e.LaunchID,
		Collection:  e.Collection,
		TotalSupply: e.TotalSupply,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Count:       e.Count,
		OccurredAt:  e.OccurredAt,
	}
	if e.Address != (common.Address{}) {
		r.Address = e.Address.Hex()
	}
	return r
}

// AllocationResponse 发放记录响应
type AllocationResponse struct {
	ID         int64     `json:"id"`
	LaunchID   uint64    `json:"launchId"`
	Collection string    `json:"collection"`
	Recipient  string    `json:"recipient"`
	Count      uint64    `json:"count"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"lastError,omitempty"`
	TxHash     string    `json:"txHash,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toAllocationResponse(r *issuer.Record) AllocationResponse {
	return AllocationResponse{
		ID:         r.ID,
		LaunchID:   r.Allocation.LaunchID,
		Collection: r.Allocation.Collection,
		Recipient:  r.Allocation.Recipient.Hex(),
		Count:      r.Allocation.Count,
		Status:     string(r.Status),
		Attempts:   r.Attempts,
		LastError:  r.LastError,
		TxHash:     r.TxHash,
		UpdatedAt:  r.UpdatedAt,
	}
}

// KeyResponse 协处理器公钥
type KeyResponse struct {
	PublicKey string `json:"publicKey"`
	Address   string `json:"address"`
}

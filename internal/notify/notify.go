// Package notify 定义通过 Redis Pub/Sub 转发给 WebSocket 客户端的
// 统一消息协议。字段名与前端解析保持一致。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	SessionSignedIn  = "signed_in"
	SessionSignedOut = "signed_out"
)

// SessionEvent 表示一次会话状态变更。
type SessionEvent struct {
	Type       string    `json:"type"`
	Event      string    `json:"event"`
	UserID     uint      `json:"user_id"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ApplicationStatusEvent 表示投递状态被雇主变更。
type ApplicationStatusEvent struct {
	Type          string `json:"type"`
	ApplicationID uint   `json:"application_id"`
	JobID         uint   `json:"job_id"`
	JobTitle      string `json:"job_title"`
	Status        string `json:"status"`
}

// Channel 返回指定用户的通知频道名。
func Channel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

// Publisher 将事件序列化后发布到用户频道。
type Publisher struct {
	redis redis.UniversalClient
}

// NewPublisher 构造 Publisher。
func NewPublisher(redisClient redis.UniversalClient) *Publisher {
	return &Publisher{redis: redisClient}
}

// Publish 将消息发布到指定用户的频道。
func (p *Publisher) Publish(ctx context.Context, userID uint, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notify message: %w", err)
	}
	if err := p.redis.Publish(ctx, Channel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", Channel(userID), err)
	}
	return nil
}

package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/52im/xuanxuan/internal/models"
)

// ChatMessageRepository 定义了消息持久化操作的接口。
// The directory layer treats the store purely as a key/filter-addressable
// record store; engine internals stay behind this interface.
type ChatMessageRepository interface {
	// Query returns messages matching every equality filter, ordered by date
	// ascending. A limit of zero means unbounded.
	Query(ctx context.Context, filter map[string]interface{}, limit int) ([]*models.ChatMessage, error)
	// BulkPut upserts messages by their client gid.
	BulkPut(ctx context.Context, messages []*models.ChatMessage) error
	// Delete removes one message row by its client gid.
	Delete(ctx context.Context, gid string) error
}

// queryColumns whitelists the fields a caller may filter on and maps them to
// their storage columns.
var queryColumns = map[string]string{
	"gid":         "gid",
	"id":          "id",
	"cgid":        "cgid",
	"user":        "user",
	"type":        "type",
	"contentType": "content_type",
}

// gormChatMessageRepository 使用 GORM 实现 ChatMessageRepository。
type gormChatMessageRepository struct {
	db *gorm.DB
}

// NewGormChatMessageRepository 创建一个新的基于 GORM 的 ChatMessageRepository。
func NewGormChatMessageRepository(db *gorm.DB) ChatMessageRepository {
	return &gormChatMessageRepository{db: db}
}

// Query 按等值过滤条件检索消息列表，支持可选的数量上限。
func (r *gormChatMessageRepository) Query(ctx context.Context, filter map[string]interface{}, limit int) ([]*models.ChatMessage, error) {
	query := r.db.WithContext(ctx).Model(&models.ChatMessage{}).Order("date ASC")
	for field, value := range filter {
		column, ok := queryColumns[field]
		if !ok {
			return nil, fmt.Errorf("query chat messages: unknown filter field %q", field)
		}
		// Quoted so that reserved column names like "user" stay valid SQL.
		query = query.Where(fmt.Sprintf("%q = ?", column), value)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []*models.ChatMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// BulkPut 以客户端 gid 为主键批量插入或更新消息。
func (r *gormChatMessageRepository) BulkPut(ctx context.Context, messages []*models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gid"}},
			UpdateAll: true,
		}).
		Create(messages).Error
}

// Delete 通过客户端 gid 删除一条消息记录。
func (r *gormChatMessageRepository) Delete(ctx context.Context, gid string) error {
	return r.db.WithContext(ctx).Delete(&models.ChatMessage{}, "gid = ?", gid).Error
}

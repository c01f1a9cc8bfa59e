package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/statusgraph/internal/models"
	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
)

const defaultReplyTreeLevel = 2

// BuildReplyTree nests replies under rootID. maxLevel counts reply levels
// below the root: direct replies are level 1 and become the top-level nodes,
// and a reply at level n is shown only while n <= maxLevel. Replies whose
// parent is neither rootID nor in replies are never attached.
func BuildReplyTree(rootID int64, replies []models.Status, maxLevel int) []*models.ReplyNode {
	if maxLevel <= 0 {
		maxLevel = defaultReplyTreeLevel
	}

	index := make(map[int64][]models.Status, len(replies))
	for _, reply := range replies {
		if reply.InReplyToID == nil || reply.ID == rootID {
			continue
		}
		parent := *reply.InReplyToID
		index[parent] = append(index[parent], reply)
	}
	for parent := range index {
		children := index[parent]
		sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	}

	// level is the 1-based depth below the root.
	type pending struct {
		node  *models.ReplyNode
		level int
	}

	roots := make([]*models.ReplyNode, 0, len(index[rootID]))
	queue := make([]pending, 0, len(replies))
	for _, reply := range index[rootID] {
		node := newReplyNode(reply)
		roots = append(roots, node)
		queue = append(queue, pending{node: node, level: 1})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.level+1 > maxLevel {
			continue
		}
		for _, reply := range index[item.node.ID] {
			child := newReplyNode(reply)
			item.node.Children = append(item.node.Children, child)
			queue = append(queue, pending{node: child, level: item.level + 1})
		}
	}
	return roots
}

func newReplyNode(status models.Status) *models.ReplyNode {
	return &models.ReplyNode{
		ID:          status.ID,
		InReplyToID: status.ParentID(),
		AccountID:   status.AccountID,
		Text:        status.Text,
		Children:    []*models.ReplyNode{},
	}
}

type replyTreeStore interface {
	GetByID(ctx context.Context, id int64) (*models.Status, error)
	ListThreadReplies(ctx context.Context, rootID int64, limit int) ([]models.Status, error)
}

// ReplyTreeService loads a reply subtree and shapes it for compact display.
type ReplyTreeService struct {
	statuses   replyTreeStore
	maxLevel   int
	fetchLimit int
	logger     *zap.Logger
}

// NewReplyTreeService constructs a ReplyTreeService.
func NewReplyTreeService(statuses replyTreeStore, maxLevel, fetchLimit int, logger *zap.Logger) *ReplyTreeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLevel <= 0 {
		maxLevel = defaultReplyTreeLevel
	}
	return &ReplyTreeService{statuses: statuses, maxLevel: maxLevel, fetchLimit: fetchLimit, logger: logger}
}

// Tree returns the nested replies of rootID. maxLevel <= 0 uses the service
// default.
func (s *ReplyTreeService) Tree(ctx context.Context, rootID int64, maxLevel int) ([]*models.ReplyNode, error) {
	if _, err := loadStatus(ctx, s.statuses, rootID); err != nil {
		return nil, err
	}
	if maxLevel <= 0 {
		maxLevel = s.maxLevel
	}
	replies, err := s.statuses.ListThreadReplies(ctx, rootID, s.fetchLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load replies")
	}
	s.logger.Debug("reply tree loaded", zap.Int64("root_id", rootID), zap.Int("replies", len(replies)), zap.Int("max_level", maxLevel))
	return BuildReplyTree(rootID, replies, maxLevel), nil
}

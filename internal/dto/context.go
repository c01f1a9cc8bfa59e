package dto

// ReplyTreeQuery bounds the nested reply view.
type ReplyTreeQuery struct {
	MaxLevel int `form:"max_level" validate:"omitempty,min=1,max=8"`
}

package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/service"
)

// ActivityHandler 활동 로그 핸들러
type ActivityHandler struct {
	board *service.Board
}

// NewActivityHandler ActivityHandler 생성
func NewActivityHandler(board *service.Board) *ActivityHandler {
	return &ActivityHandler{board: board}
}

func parseTime(c *fiber.Ctx, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

// Timeline 활동 타임라인 (?since=&until=&actions=a,b&limit=)
func (h *ActivityHandler) Timeline(c *fiber.Ctx) error {
	since, err := parseTime(c, "since")
	if err != nil {
		return badRequest(c, "since must be RFC3339")
	}
	until, err := parseTime(c, "until")
	if err != nil {
		return badRequest(c, "until must be RFC3339")
	}

	var actions []model.ActivityAction
	if raw := c.Query("actions"); raw != "" {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				actions = append(actions, model.ActivityAction(a))
			}
		}
	}

	acts, err := h.board.Timeline(c.UserContext(), caller(c), c.Params("id"), service.TimelineQuery{
		Since:   since,
		Until:   until,
		Actions: actions,
		Limit:   c.QueryInt("limit", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, acts)
}

// UserSummary 사용자별 활동 요약
func (h *ActivityHandler) UserSummary(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid user ID")
	}

	summary, err := h.board.UserSummary(c.UserContext(), caller(c), c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, summary)
}

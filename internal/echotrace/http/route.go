package http

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mymoliy/echotrace/internal/errors"
	"github.com/Mymoliy/echotrace/internal/model"
	"github.com/Mymoliy/echotrace/pkg/util"
)

func (s *Service) initRouter() {
	s.initBaseRouter()
	s.initAPIRouter()
	s.initMCPRouter()
}

func (s *Service) initBaseRouter() {
	s.router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	s.router.GET("/avatar/:username", s.handleAvatar)
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

func (s *Service) initAPIRouter() {
	api := s.router.Group("/api/v1")
	{
		api.GET("/chatroom", s.handleChatRooms)
		api.GET("/chatroom/:room/members", s.handleMembers)
		api.GET("/chatroom/:room/rank", s.handleRank)
		api.GET("/chatroom/:room/daily", s.handleDaily)
		api.GET("/chatroom/:room/wordfreq", s.handleWordFreq)
		api.GET("/chatroom/:room/mediatype", s.handleMediaType)
		api.GET("/chatroom/:room/hours", s.handleHours)
		api.POST("/action/reload", s.handleActionReload)
	}
}

func (s *Service) initMCPRouter() {
	s.router.Any("/mcp", func(c *gin.Context) { s.mcpStreamableServer.ServeHTTP(c.Writer, c.Request) })
	s.router.Any("/sse", func(c *gin.Context) { s.mcpSSEServer.ServeHTTP(c.Writer, c.Request) })
	s.router.Any("/message", func(c *gin.Context) { s.mcpSSEServer.ServeHTTP(c.Writer, c.Request) })
}

// timeWindow resolves an optional time range expression. Empty means the
// whole archive history up to now.
func timeWindow(expr string) (time.Time, time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Unix(0, 0), time.Now(), nil
	}
	start, end, ok := util.TimeRangeOf(expr)
	if !ok {
		return time.Time{}, time.Time{}, errors.InvalidArg("time")
	}
	return start, end, nil
}

func writeCSV(c *gin.Context, name string, header []string, rows func(w *csv.Writer)) {
	c.Writer.Header().Set("Content-Type", "text/csv; charset=utf-8")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.csv", name, time.Now().Format("20060102_150405")))
	w := csv.NewWriter(c.Writer)
	w.Write(header)
	rows(w)
	w.Flush()
}

// GET /api/v1/chatroom
func (s *Service) handleChatRooms(c *gin.Context) {
	rooms := s.db.Engine().ListGroupChats(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"items": rooms})
}

// GET /api/v1/chatroom/:room/members
func (s *Service) handleMembers(c *gin.Context) {
	members := s.db.Engine().ListMembers(c.Request.Context(), c.Param("room"))
	c.JSON(http.StatusOK, gin.H{"items": members})
}

// GET /api/v1/chatroom/:room/rank
func (s *Service) handleRank(c *gin.Context) {
	q := struct {
		Time   string `form:"time"`
		Format string `form:"format"`
	}{}
	if err := c.ShouldBindQuery(&q); err != nil {
		errors.Err(c, errors.InvalidArg("query"))
		return
	}

	start, end, err := timeWindow(q.Time)
	if err != nil {
		errors.Err(c, err)
		return
	}

	rankings := s.db.Engine().RankMembersByMessageCount(c.Request.Context(), c.Param("room"), start, end)

	switch strings.ToLower(strings.TrimSpace(q.Format)) {
	case "csv":
		writeCSV(c, "rank", []string{"UserName", "DisplayName", "MessageCount"}, func(w *csv.Writer) {
			for _, r := range rankings {
				w.Write([]string{r.Member.UserName, r.Member.DisplayName, strconv.Itoa(r.MessageCount)})
			}
		})
	default:
		c.JSON(http.StatusOK, gin.H{"items": rankings})
	}
}

// GET /api/v1/chatroom/:room/daily
func (s *Service) handleDaily(c *gin.Context) {
	q := struct {
		Member string `form:"member"`
		Time   string `form:"time"`
		Format string `form:"format"`
	}{}
	if err := c.ShouldBindQuery(&q); err != nil {
		errors.Err(c, errors.InvalidArg("query"))
		return
	}
	member := strings.TrimSpace(q.Member)
	if member == "" {
		errors.Err(c, errors.InvalidArg("member"))
		return
	}

	start, end, err := timeWindow(q.Time)
	if err != nil {
		errors.Err(c, err)
		return
	}

	counts := s.db.Engine().MemberDailyMessageCounts(c.Request.Context(), c.Param("room"), member, start, end)

	switch strings.ToLower(strings.TrimSpace(q.Format)) {
	case "csv":
		writeCSV(c, "daily", []string{"Date", "Count"}, func(w *csv.Writer) {
			for _, d := range counts {
				w.Write([]string{d.Date, strconv.Itoa(d.Count)})
			}
		})
	default:
		c.JSON(http.StatusOK, gin.H{"items": counts})
	}
}

// GET /api/v1/chatroom/:room/wordfreq
func (s *Service) handleWordFreq(c *gin.Context) {
	q := struct {
		Member string `form:"member"`
		Time   string `form:"time"`
		Top    int    `form:"top"`
	}{}
	if err := c.ShouldBindQuery(&q); err != nil {
		errors.Err(c, errors.InvalidArg("query"))
		return
	}
	member := strings.TrimSpace(q.Member)
	if member == "" {
		errors.Err(c, errors.InvalidArg("member"))
		return
	}

	start, end, err := timeWindow(q.Time)
	if err != nil {
		errors.Err(c, err)
		return
	}

	freq := s.db.Engine().MemberWordFrequency(c.Request.Context(), c.Param("room"), member, start, end, q.Top)
	c.JSON(http.StatusOK, gin.H{"items": freq})
}

type mediaTypeCount struct {
	Type  int    `json:"type"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// labelMediaTypes turns a type histogram into labeled rows, most frequent first.
func labelMediaTypes(hist map[int]int) []mediaTypeCount {
	items := make([]mediaTypeCount, 0, len(hist))
	for typ, count := range hist {
		items = append(items, mediaTypeCount{Type: typ, Label: model.MessageTypeName(typ), Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Type < items[j].Type
		}
		return items[i].Count > items[j].Count
	})
	return items
}

// GET /api/v1/chatroom/:room/mediatype
func (s *Service) handleMediaType(c *gin.Context) {
	start, end, err := timeWindow(c.Query("time"))
	if err != nil {
		errors.Err(c, err)
		return
	}

	hist := s.db.Engine().MediaTypeHistogram(c.Request.Context(), c.Param("room"), start, end)
	c.JSON(http.StatusOK, gin.H{"items": labelMediaTypes(hist)})
}

type hourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// sortHourCounts turns an hour histogram into rows ordered by hour of day.
func sortHourCounts(hist map[int]int) []hourCount {
	items := make([]hourCount, 0, len(hist))
	for hour, count := range hist {
		items = append(items, hourCount{Hour: hour, Count: count})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Hour < items[j].Hour })
	return items
}

// GET /api/v1/chatroom/:room/hours
func (s *Service) handleHours(c *gin.Context) {
	start, end, err := timeWindow(c.Query("time"))
	if err != nil {
		errors.Err(c, err)
		return
	}

	hist := s.db.Engine().ActiveHourHistogram(c.Request.Context(), c.Param("room"), start, end)
	c.JSON(http.StatusOK, gin.H{"items": sortHourCounts(hist)})
}

// GET /avatar/:username
func (s *Service) handleAvatar(c *gin.Context) {
	avatar, err := s.db.ResolveAvatar(c.Request.Context(), c.Param("username"))
	if err != nil {
		errors.Err(c, err)
		return
	}
	c.Redirect(http.StatusFound, avatar.URL)
}

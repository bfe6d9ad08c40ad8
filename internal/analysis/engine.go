// Package analysis computes analytics over a persisted group chat history:
// member rosters, message-volume rankings, per-member daily counts,
// media-type and active-hour histograms, and per-member word frequencies.
// It joins two independently maintained stores (message archive, contact
// roster) and tolerates missing or partial data in either.
package analysis

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Mymoliy/echotrace/internal/model"
	"github.com/Mymoliy/echotrace/internal/segment"
	"github.com/Mymoliy/echotrace/pkg/util"
)

// MessageStore is the message archive the engine reads from. Fetch bounds
// are inclusive epoch seconds; histogram bounds are expanded time values.
type MessageStore interface {
	FetchMessages(ctx context.Context, talker string, startUnix, endUnix int64) ([]*model.Message, error)
	MediaTypeHistogram(ctx context.Context, talker string, start, end time.Time) (map[int]int, error)
	ActiveHourHistogram(ctx context.Context, talker string, start, end time.Time) (map[int]int, error)
}

// RosterStore is the contact database providing group membership, display
// names and avatars. RosterPath reports whether roster data is available at
// all; false is "no data", not an error.
type RosterStore interface {
	ListConversations(ctx context.Context) ([]*model.Conversation, error)
	ResolveDisplayNames(ctx context.Context, usernames []string) (map[string]string, error)
	ResolveAvatars(ctx context.Context, usernames []string) (map[string]string, error)
	RosterPath() (string, bool)
	RoomMembers(ctx context.Context, room string) ([]*model.RoomMember, error)
	CountRoomMembers(ctx context.Context, room string) (int, error)
}

// TextAnalyzer segments chat text into ranked word counts. FilterTexts is a
// pre-pass that strips non-analyzable content before segmentation.
type TextAnalyzer interface {
	FilterTexts(texts []string) []string
	Analyze(ctx context.Context, texts []string, opts segment.Options) ([]*model.WordCount, error)
}

// Engine answers the group analytics queries. It is stateless apart from
// its collaborator references, so concurrent use needs no locking. All
// operations are read-only, idempotent and best-effort: collaborator
// failures are swallowed and degrade to empty or zero results, never to an
// error. Callers therefore cannot distinguish "no data" from "fetch
// failed"; that collapse is part of the contract.
type Engine struct {
	messages MessageStore
	roster   RosterStore
	analyzer TextAnalyzer
	wordOpts segment.Options
}

func NewEngine(messages MessageStore, roster RosterStore, analyzer TextAnalyzer) *Engine {
	return NewEngineWithOptions(messages, roster, analyzer, segment.Options{})
}

// NewEngineWithOptions sets the baseline options for word frequency
// analysis; a per-call topN above zero overrides opts.TopN. Zero fields
// keep the engine defaults (word mode, top 100, min count 1, min length 2).
func NewEngineWithOptions(messages MessageStore, roster RosterStore, analyzer TextAnalyzer, opts segment.Options) *Engine {
	if opts.Mode == "" {
		opts.Mode = segment.ModeWord
	}
	if opts.TopN <= 0 {
		opts.TopN = segment.DefaultTopN
	}
	if opts.MinCount <= 0 {
		opts.MinCount = 1
	}
	if opts.MinLength <= 0 {
		opts.MinLength = 2
	}
	return &Engine{
		messages: messages,
		roster:   roster,
		analyzer: analyzer,
		wordOpts: opts,
	}
}

// windowBounds expands a calendar-date window to inclusive epoch-second
// bounds: start-of-day of start through 23:59:59 of end, local time.
func windowBounds(start, end time.Time) (int64, int64) {
	return util.DayStart(start).Unix(), util.DayEnd(end).Unix()
}

// ListGroupChats returns all group conversations sorted by member count
// descending; ties keep the roster's fetch order. Avatar resolution failure
// degrades to missing avatars and a per-room count failure degrades that
// room's count to 0, neither aborts the listing.
func (e *Engine) ListGroupChats(ctx context.Context) []*ChatRoomSummary {
	conversations, err := e.roster.ListConversations(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("list conversations failed")
		return []*ChatRoomSummary{}
	}

	groups := make([]*model.Conversation, 0, len(conversations))
	usernames := make([]string, 0, len(conversations))
	for _, c := range conversations {
		if !c.IsGroup {
			continue
		}
		groups = append(groups, c)
		usernames = append(usernames, c.UserName)
	}

	displayNames := e.resolveDisplayNames(ctx, usernames)
	avatars := e.resolveAvatars(ctx, usernames)

	summaries := make([]*ChatRoomSummary, 0, len(groups))
	for _, g := range groups {
		name := displayNames[g.UserName]
		if name == "" {
			name = g.UserName
		}
		summaries = append(summaries, &ChatRoomSummary{
			UserName:    g.UserName,
			DisplayName: name,
			MemberCount: e.CountMembers(ctx, g.UserName),
			AvatarURL:   avatars[g.UserName],
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].MemberCount > summaries[j].MemberCount
	})
	return summaries
}

// CountMembers returns the number of current members of a group, or 0 on
// any failure. Member counts are advisory data.
func (e *Engine) CountMembers(ctx context.Context, room string) int {
	n, err := e.roster.CountRoomMembers(ctx, room)
	if err != nil {
		log.Debug().Err(err).Str("room", room).Msg("count room members failed")
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

// ListMembers returns the resolved members of a group in roster order.
// Membership rows without a resolvable username are skipped. The result is
// empty when roster data is unavailable as well as when the group has no
// members; callers must not conflate the two without further context.
func (e *Engine) ListMembers(ctx context.Context, room string) []*Member {
	if _, ok := e.roster.RosterPath(); !ok {
		log.Debug().Str("room", room).Msg("no roster data available")
		return []*Member{}
	}

	rows, err := e.roster.RoomMembers(ctx, room)
	if err != nil {
		log.Debug().Err(err).Str("room", room).Msg("fetch room members failed")
		return []*Member{}
	}

	usernames := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.UserName == "" {
			continue
		}
		usernames = append(usernames, row.UserName)
	}
	displayNames := e.resolveDisplayNames(ctx, usernames)

	members := make([]*Member, 0, len(usernames))
	for _, row := range rows {
		if row.UserName == "" {
			continue
		}
		name := displayNames[row.UserName]
		if name == "" {
			name = row.UserName
		}
		members = append(members, &Member{
			UserName:    row.UserName,
			DisplayName: name,
			AvatarURL:   row.AvatarURL,
		})
	}
	return members
}

// RankMembersByMessageCount counts messages per sender inside the window
// and returns rankings sorted by message count descending. Ties keep the
// order senders were first observed in the archive. Senders missing from
// the roster get a synthetic member whose display name is the username.
func (e *Engine) RankMembersByMessageCount(ctx context.Context, room string, start, end time.Time) []*MemberRanking {
	startUnix, endUnix := windowBounds(start, end)
	msgs, err := e.messages.FetchMessages(ctx, room, startUnix, endUnix)
	if err != nil {
		log.Debug().Err(err).Str("room", room).Msg("fetch messages failed")
		return []*MemberRanking{}
	}

	counts := make(map[string]int, 16)
	order := make([]string, 0, 16)
	for _, m := range msgs {
		if m.Sender == "" {
			continue
		}
		if _, seen := counts[m.Sender]; !seen {
			order = append(order, m.Sender)
		}
		counts[m.Sender]++
	}
	// No senders means no roster fetch either.
	if len(order) == 0 {
		return []*MemberRanking{}
	}

	byName := make(map[string]*Member, len(order))
	for _, member := range e.ListMembers(ctx, room) {
		byName[member.UserName] = member
	}

	rankings := make([]*MemberRanking, 0, len(order))
	for _, sender := range order {
		member, ok := byName[sender]
		if !ok {
			member = &Member{UserName: sender, DisplayName: sender}
		}
		rankings = append(rankings, &MemberRanking{Member: member, MessageCount: counts[sender]})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].MessageCount > rankings[j].MessageCount
	})
	return rankings
}

// MemberDailyMessageCounts buckets one member's messages in the window by
// calendar day, ascending by date. Days without messages are omitted.
func (e *Engine) MemberDailyMessageCounts(ctx context.Context, room, member string, start, end time.Time) []*DailyCount {
	startUnix, endUnix := windowBounds(start, end)
	msgs, err := e.messages.FetchMessages(ctx, room, startUnix, endUnix)
	if err != nil {
		log.Debug().Err(err).Str("room", room).Str("member", member).Msg("fetch messages failed")
		return []*DailyCount{}
	}

	buckets := make(map[string]int)
	for _, m := range msgs {
		if m.Sender != member {
			continue
		}
		buckets[m.Time.Format("2006-01-02")]++
	}

	counts := make([]*DailyCount, 0, len(buckets))
	for date, count := range buckets {
		counts = append(counts, &DailyCount{Date: date, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Date < counts[j].Date
	})
	return counts
}

// MemberWordFrequency segments one member's text messages in the window and
// returns word counts bounded by topN; topN <= 0 falls back to the engine's
// baseline options. Only plain text and the quoted text subtype contribute.
// Any failure along the path, store or analyzer, yields an empty map.
func (e *Engine) MemberWordFrequency(ctx context.Context, room, member string, start, end time.Time, topN int) map[string]int {
	freq := make(map[string]int)

	startUnix, endUnix := windowBounds(start, end)
	msgs, err := e.messages.FetchMessages(ctx, room, startUnix, endUnix)
	if err != nil {
		log.Debug().Err(err).Str("room", room).Str("member", member).Msg("fetch messages failed")
		return freq
	}

	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Sender != member || m.Content == "" {
			continue
		}
		if !m.IsText() && m.Type != model.MessageTypeQuotedText {
			continue
		}
		texts = append(texts, m.Content)
	}

	opts := e.wordOpts
	if topN > 0 {
		opts.TopN = topN
	}
	ranked, err := e.analyzer.Analyze(ctx, e.analyzer.FilterTexts(texts), opts)
	if err != nil {
		log.Debug().Err(err).Str("room", room).Str("member", member).Msg("word analysis failed")
		return freq
	}

	for _, wc := range ranked {
		freq[wc.Word] = wc.Count
	}
	return freq
}

// MediaTypeHistogram returns the distribution of message type codes in the
// window. The aggregation itself happens in the message store; the engine
// only expands the window and absorbs failures into an empty map.
func (e *Engine) MediaTypeHistogram(ctx context.Context, room string, start, end time.Time) map[int]int {
	hist, err := e.messages.MediaTypeHistogram(ctx, room, util.DayStart(start), util.DayEnd(end))
	if err != nil {
		log.Debug().Err(err).Str("room", room).Msg("media type histogram failed")
		return map[int]int{}
	}
	if hist == nil {
		return map[int]int{}
	}
	return hist
}

// ActiveHourHistogram returns message counts per hour of day (0-23) in the
// window, delegated to the message store like MediaTypeHistogram.
func (e *Engine) ActiveHourHistogram(ctx context.Context, room string, start, end time.Time) map[int]int {
	hist, err := e.messages.ActiveHourHistogram(ctx, room, util.DayStart(start), util.DayEnd(end))
	if err != nil {
		log.Debug().Err(err).Str("room", room).Msg("active hour histogram failed")
		return map[int]int{}
	}
	if hist == nil {
		return map[int]int{}
	}
	return hist
}

// resolveDisplayNames wraps the batch roster lookup. Wholesale failure
// degrades to an empty map so every username falls back to itself.
func (e *Engine) resolveDisplayNames(ctx context.Context, usernames []string) map[string]string {
	if len(usernames) == 0 {
		return map[string]string{}
	}
	names, err := e.roster.ResolveDisplayNames(ctx, usernames)
	if err != nil {
		log.Debug().Err(err).Msg("display name resolution failed")
		return map[string]string{}
	}
	return names
}

// resolveAvatars wraps the batch avatar lookup; failure is non-fatal and
// yields all-missing avatars.
func (e *Engine) resolveAvatars(ctx context.Context, usernames []string) map[string]string {
	if len(usernames) == 0 {
		return map[string]string{}
	}
	avatars, err := e.roster.ResolveAvatars(ctx, usernames)
	if err != nil {
		log.Debug().Err(err).Msg("avatar resolution failed")
		return map[string]string{}
	}
	return avatars
}

// Package notify formats import results as chat text and posts them to a
// webhook.
package notify

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"resale-admin/internal/models"
)

// Kind selects the placeholder used when there is nothing to report.
type Kind string

const (
	KindGeneric      Kind = "generic"
	KindBookingDate  Kind = "booking_date"
	KindCancellation Kind = "cancellation"
)

// Placeholder sentences for an empty result.
const (
	EmptyBookingDate  = "指定した予約日の新規予約はありません。"
	EmptyCancellation = "キャンセルされた予約はありません。"
	EmptyGeneric      = "通知対象の予約はありません。"
)

// Entry is one reservation block of a notification.
type Entry struct {
	PropertyName string
	Source       string
	GuestName    string
	CheckIn      *time.Time
	CheckOut     *time.Time
	Nights       *int
	Adults       *int
	Children     *int
	Infants      *int
	RatePlan     string
	Amount       *int64
	Status       *string
}

func (e Entry) cancelled() bool {
	return e.Status != nil && *e.Status == models.StatusCancelled
}

func (e Entry) blocked() bool {
	return e.Status != nil && *e.Status == models.StatusBlocked
}

var printer = message.NewPrinter(language.Japanese)

// FormatYen renders an amount as "¥12,000" or "-¥12,000".
func FormatYen(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "¥" + printer.Sprintf("%d", amount)
}

// Compose builds the message text. Active reservations exclude cancellations
// and blocks; the cancellation section lists cancelled rows.
func Compose(kind Kind, entries []Entry) string {
	var active, cancelled []Entry
	for _, e := range entries {
		switch {
		case e.cancelled():
			cancelled = append(cancelled, e)
		case e.blocked():
		default:
			active = append(active, e)
		}
	}
	if len(active) == 0 && len(cancelled) == 0 {
		return placeholder(kind)
	}

	var sections []string
	if len(active) > 0 {
		sections = append(sections, section(fmt.Sprintf("【予約 %d件】", len(active)), active))
	}
	if len(cancelled) > 0 {
		sections = append(sections, section(fmt.Sprintf("【キャンセル %d件】", len(cancelled)), cancelled))
	}
	return strings.Join(sections, "\n\n")
}

func placeholder(kind Kind) string {
	switch kind {
	case KindBookingDate:
		return EmptyBookingDate
	case KindCancellation:
		return EmptyCancellation
	default:
		return EmptyGeneric
	}
}

func section(title string, entries []Entry) string {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, block(e))
	}
	return title + "\n" + strings.Join(blocks, "\n---\n")
}

func block(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "施設: %s\n", e.PropertyName)
	fmt.Fprintf(&b, "経路: %s\n", orDash(e.Source))
	if e.GuestName != "" {
		fmt.Fprintf(&b, "ゲスト: %s\n", e.GuestName)
	}
	fmt.Fprintf(&b, "日程: %s → %s", formatDate(e.CheckIn), formatDate(e.CheckOut))
	if e.Nights != nil {
		fmt.Fprintf(&b, " (%d泊)", *e.Nights)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "人数: 大人%s 子供%s 幼児%s\n", count(e.Adults), count(e.Children), count(e.Infants))
	fmt.Fprintf(&b, "プラン: %s\n", orDash(e.RatePlan))
	if e.Amount != nil {
		fmt.Fprintf(&b, "金額: %s", FormatYen(*e.Amount))
	} else {
		b.WriteString("金額: -")
	}
	return b.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func count(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package services

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/princeprakhar/review-widget-backend/internal/models"
	"github.com/princeprakhar/review-widget-backend/internal/upstream"
	"github.com/princeprakhar/review-widget-backend/internal/utils"
)

const anonymousAuthor = "Anonymous"

// Normalizer turns provider reviews into storable records with a best-effort absolute timestamp.
type Normalizer struct {
	placeholderPhoto string
	now              func() time.Time
}

func NewNormalizer(placeholderPhoto string, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{placeholderPhoto: placeholderPhoto, now: now}
}

func (n *Normalizer) Normalize(widgetID uint, raw upstream.Review) models.GoogleReview {
	now := n.now()

	var createdAt time.Time
	switch {
	case raw.UnixTime > 0:
		createdAt = time.Unix(raw.UnixTime, 0)
	case strings.TrimSpace(raw.RelativeDate) != "":
		createdAt = EstimateRelativeDate(raw.RelativeDate, now)
	default:
		createdAt = now
	}

	author := utils.SanitizeString(raw.AuthorName)
	if author == "" {
		author = anonymousAuthor
	}

	photo := utils.SanitizeString(raw.PhotoURL)
	if photo == "" {
		photo = n.placeholderPhoto
	}

	return models.GoogleReview{
		WidgetID:                widgetID,
		AuthorName:              author,
		Rating:                  raw.Rating,
		Text:                    utils.SanitizeString(raw.Text),
		RelativeTimeDescription: utils.SanitizeString(raw.RelativeDate),
		ProfilePhotoURL:         photo,
		CreatedAt:               createdAt.UTC().Truncate(time.Second),
	}
}

func (n *Normalizer) NormalizeAll(widgetID uint, raws []upstream.Review) []models.GoogleReview {
	out := make([]models.GoogleReview, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Normalize(widgetID, raw))
	}
	return out
}

type dateUnit int

const (
	unitNone dateUnit = iota
	unitMinute
	unitHour
	unitDay
	unitWeek
	unitMonth
	unitYear
)

var unitWords = map[string]dateUnit{
	"minute": unitMinute, "minutes": unitMinute, "min": unitMinute, "mins": unitMinute,
	"minúta": unitMinute, "minútou": unitMinute, "minútami": unitMinute, "minút": unitMinute, "minúty": unitMinute,
	"minutou": unitMinute, "minutami": unitMinute,

	"hour": unitHour, "hours": unitHour,
	"hodina": unitHour, "hodinou": unitHour, "hodinami": unitHour, "hodín": unitHour, "hodiny": unitHour, "hodin": unitHour,

	"day": unitDay, "days": unitDay,
	"deň": unitDay, "den": unitDay, "dňa": unitDay, "dna": unitDay, "dni": unitDay, "dní": unitDay,
	"dňom": unitDay, "dnom": unitDay, "dňami": unitDay, "dnami": unitDay,

	"week": unitWeek, "weeks": unitWeek,
	"týždeň": unitWeek, "tyzden": unitWeek, "týždne": unitWeek, "tyzdne": unitWeek, "týždňa": unitWeek,
	"týždňom": unitWeek, "tyzdnom": unitWeek, "týždňami": unitWeek, "tyzdnami": unitWeek, "týždňov": unitWeek,

	"month": unitMonth, "months": unitMonth,
	"mesiac": unitMonth, "mesiaca": unitMonth, "mesiace": unitMonth, "mesiacom": unitMonth,
	"mesiacmi": unitMonth, "mesiacov": unitMonth,

	"year": unitYear, "years": unitYear,
	"rok": unitYear, "roka": unitYear, "roky": unitYear, "rokom": unitYear, "rokmi": unitYear, "rokov": unitYear,
}

// maxRelativeAmount caps each unit at roughly a hundred years.
var maxRelativeAmount = map[dateUnit]int{
	unitMinute: 100 * 366 * 24 * 60,
	unitHour:   100 * 366 * 24,
	unitDay:    100 * 366,
	unitWeek:   100 * 53,
	unitMonth:  100 * 12,
	unitYear:   100,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "jeden": 1, "jedna": 1, "jedno": 1, "jedným": 1, "jednym": 1, "jednou": 1,
	"two": 2, "dva": 2, "dve": 2, "dvoma": 2, "dvomi": 2,
	"three": 3, "tri": 3, "troma": 3, "tromi": 3,
	"four": 4, "štyri": 4, "styri": 4, "štyrmi": 4, "styrmi": 4,
	"five": 5, "päť": 5, "pat": 5, "piatimi": 5,
	"six": 6, "šesť": 6, "sest": 6, "šiestimi": 6,
	"seven": 7, "sedem": 7, "siedmimi": 7,
	"eight": 8, "osem": 8, "ôsmimi": 8,
	"nine": 9, "deväť": 9, "devat": 9, "deviatimi": 9,
	"ten": 10, "desať": 10, "desat": 10, "desiatimi": 10,
	"eleven": 11, "jedenásť": 11, "twelve": 12, "dvanásť": 12,
}

// EstimateRelativeDate resolves phrases like "3 months ago" or "pred 3 mesiacmi" against now.
// Anything it cannot read resolves to now.
func EstimateRelativeDate(phrase string, now time.Time) time.Time {
	tokens := strings.FieldsFunc(strings.ToLower(phrase), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '-')
	})

	amount := 0
	unit := unitNone
	for _, tok := range tokens {
		switch tok {
		case "today", "dnes", "now", "teraz":
			return now
		case "yesterday", "včera", "vcera":
			return now.AddDate(0, 0, -1)
		}
		if amount == 0 {
			if n, err := strconv.Atoi(tok); err == nil && n > 0 {
				amount = n
				continue
			}
			if n, ok := numberWords[tok]; ok {
				amount = n
				continue
			}
		}
		if unit == unitNone {
			if u, ok := unitWords[tok]; ok {
				unit = u
			}
		}
	}

	if unit == unitNone {
		return now
	}
	// "pred mesiacom", "last week": a bare unit means one of it
	if amount == 0 {
		amount = 1
	}
	// beyond a century the phrase is garbage, and large durations overflow
	if amount > maxRelativeAmount[unit] {
		return now
	}

	switch unit {
	case unitMinute:
		return now.Add(-time.Duration(amount) * time.Minute)
	case unitHour:
		return now.Add(-time.Duration(amount) * time.Hour)
	case unitDay:
		return now.AddDate(0, 0, -amount)
	case unitWeek:
		return now.AddDate(0, 0, -7*amount)
	case unitMonth:
		return now.AddDate(0, -amount, 0)
	default:
		return now.AddDate(-amount, 0, 0)
	}
}

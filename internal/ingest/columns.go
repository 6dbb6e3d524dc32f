package ingest

// Header labels of the reservation export. Columns are matched by exact name.
const (
	ColProperty    = "施設名"
	ColPropertyTag = "施設タグ"
	ColSource      = "予約サイト"
	ColBookedOn    = "予約日"
	ColCheckIn     = "チェックイン"
	ColCheckOut    = "チェックアウト"
	ColNights      = "泊数"
	ColAdults      = "大人"
	ColChildren    = "子供"
	ColInfants     = "幼児"
	ColNationality = "国籍"
	ColSaleAmount  = "売上"
	ColRatePlan    = "料金プラン"
	ColStatus      = "ステータス"
	ColExternalID  = "予約番号"
	ColGuestName   = "ゲスト名"
)

// KnownHeaders lists every column the importer reads.
var KnownHeaders = []string{
	ColProperty, ColPropertyTag, ColSource, ColBookedOn, ColCheckIn, ColCheckOut,
	ColNights, ColAdults, ColChildren, ColInfants, ColNationality, ColSaleAmount,
	ColRatePlan, ColStatus, ColExternalID, ColGuestName,
}

// ExcludedHeaders are never read, even when present: guest contact details,
// payment processor internals and free-text comments must not reach the store.
var ExcludedHeaders = map[string]struct{}{
	"メールアドレス":     {},
	"電話番号":        {},
	"住所":          {},
	"郵便番号":        {},
	"生年月日":        {},
	"パスポート番号":     {},
	"決済ID":        {},
	"決済ステータス":     {},
	"決済方法":        {},
	"カード下4桁":      {},
	"Stripe顧客ID":  {},
	"Stripe決済ID":  {},
	"備考":          {},
	"コメント":        {},
	"メモ":          {},
	"ゲストメッセージ":    {},
	"email":       {},
	"phone":       {},
	"comment":     {},
	"payment_id":  {},
	"customer_id": {},
}

// IsExcluded reports whether a header must be ignored.
func IsExcluded(header string) bool {
	_, ok := ExcludedHeaders[header]
	return ok
}

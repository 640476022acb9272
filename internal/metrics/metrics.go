package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	MembersUpserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xuanxuan_members_upserted_total",
		Help: "Total member records upserted into the member directory.",
	})
	ChatsUpserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xuanxuan_chats_upserted_total",
		Help: "Total chat records upserted into the chat directory.",
	})
	MessagesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xuanxuan_messages_ingested_total",
		Help: "Total chat messages ingested into in-memory windows.",
	})
	NoticeEmits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xuanxuan_notice_emits_total",
		Help: "Total aggregate notice emissions after debounce.",
	})
	Searches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xuanxuan_searches_total",
		Help: "Total chat search invocations.",
	})
	StoreWriteFail = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xuanxuan_store_write_fail_total",
		Help: "Total failed background bulk writes to the message store.",
	})
)

func Register() {
	prometheus.MustRegister(
		MembersUpserted, ChatsUpserted,
		MessagesIngested, NoticeEmits,
		Searches, StoreWriteFail,
	)
}

package dialogue

import (
	"strings"
)

// topicKeywords maps a canonical topic label to the phrases that indicate
// it. A topic needs at least one phrase hit; between competing topics the
// one with more hits wins, earlier entries break ties.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"lo âu giao tiếp", []string{"giao tiếp", "nói chuyện với người lạ", "sợ đám đông", "thuyết trình"}},
	{"stress công việc", []string{"công việc", "deadline", "sếp", "đồng nghiệp", "việc làm"}},
	{"áp lực học tập", []string{"học tập", "kỳ thi", "bài kiểm tra", "điểm số", "trường"}},
	{"giấc ngủ", []string{"mất ngủ", "khó ngủ", "giấc ngủ", "thức khuya"}},
	{"gia đình", []string{"gia đình", "bố mẹ", "cha mẹ", "anh chị em"}},
	{"tình cảm", []string{"người yêu", "chia tay", "tình cảm", "mối quan hệ"}},
	{"cô đơn", []string{"cô đơn", "một mình", "không có bạn"}},
}

// DetectTopic extracts the dominant topic of a message, or "" when no
// known topic matches
func DetectTopic(message string) string {
	lower := strings.ToLower(message)

	best := ""
	bestHits := 0
	for _, entry := range topicKeywords {
		hits := 0
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = entry.topic
			bestHits = hits
		}
	}
	return best
}

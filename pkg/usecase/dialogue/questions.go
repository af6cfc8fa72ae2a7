package dialogue

import (
	"fmt"

	"github.com/m-mizutani/solace/pkg/model"
)

// Question templates are Vietnamese-first to match the corpus language.
// pick keys off the turn count so repeated triggers rotate through the
// set deterministically.

var crisisQuestions = []string{
	"Mình đang ở đây với bạn. Bạn có muốn chia sẻ thêm về điều đang khiến bạn đau lòng nhất không?",
	"Cảm ơn bạn đã tin tưởng nói ra. Lúc này bạn có ai bên cạnh không?",
}

var vagueReplyQuestions = []string{
	"Ổn theo nghĩa nào nhỉ? Bạn kể thêm cho mình nghe được không?",
	"Nghe có vẻ bạn đang giữ điều gì đó trong lòng. Hôm nay của bạn thực sự thế nào?",
}

var explorationQuestions = []string{
	"Điều gì đang khiến bạn cảm thấy như vậy?",
	"Điều gì thường làm cảm giác đó mạnh lên?",
	"Khi điều đó xảy ra, bạn thường làm gì để dễ chịu hơn?",
}

var durationQuestions = []string{
	"Cảm giác này kéo dài bao lâu rồi?",
	"Bạn bắt đầu cảm thấy như vậy từ khi nào?",
}

var progressQuestions = []string{
	"Tuần vừa rồi của bạn thế nào so với lần trước mình nói chuyện?",
	"Những điều bạn đã thử có giúp bạn dễ chịu hơn chút nào không?",
}

func checkInQuestion(conv *model.Conversation) string {
	if conv.LastTopic != "" {
		return fmt.Sprintf("Dạo này chuyện %s của bạn sao rồi? Mình vẫn nhớ lần trước bạn có nhắc đến.", conv.LastTopic)
	}
	return "Lâu rồi không thấy bạn, dạo này bạn thế nào?"
}

func pick(questions []string, turn int) string {
	if len(questions) == 0 {
		return ""
	}
	if turn < 0 {
		turn = 0
	}
	return questions[turn%len(questions)]
}

package translation

import (
	"fmt"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/rewrite"
)

const titleSystemPrompt = `Bạn là chuyên gia phân tích tiêu đề phim hoạt hình Trung Quốc (Donghua).
Chỉ trả về một đối tượng JSON với các khóa:
"originalTitle" (tiêu đề gốc), "translatedTitle" (tiêu đề tiếng Việt tự nhiên, giữ tinh thần gốc, không dịch word-by-word),
"mainGenres" (mảng thể loại), "summary" (tóm tắt ngắn), "tone" (ví dụ: Hài hước, Nghiêm túc, Dark fantasy),
"recommendedStyle" (phong cách dịch khuyến nghị, ví dụ: cổ phong trang trọng hoặc hiện đại gãy gọn).
Thể loại ưu tiên: Tu tiên cổ phong, Xuyên không, Đô thị huyền bí, Quỷ dị, Hệ thống, Trọng sinh, Ngự thú, Thần thoại, Hành động siêu năng lực.`

const translateSystemPrompt = `Bạn dịch phụ đề Donghua từ tiếng Trung sang tiếng Việt.
Quy tắc:
1. Dịch sát nghĩa nhưng tự nhiên như người Việt nói chuyện.
2. Không thay đổi id, không gộp hay tách dòng.
3. Dùng thuật ngữ Hán-Việt chuẩn cho tu tiên và huyền huyễn.
Chỉ trả về mảng JSON dạng [{"id": "...", "translated": "..."}].`

const rewriteSystemPrompt = `Bạn rút gọn phụ đề tiếng Việt để người xem kịp đọc.
Với mỗi mục trong "targets", viết lại "currentText" ngắn hơn mà vẫn giữ ý chính và giọng văn, dựa vào "context" để câu liền mạch.
Có thể đề xuất "afterTimestamp" mới (định dạng HH:MM:SS,mmm --> HH:MM:SS,mmm) nếu cần kéo dài thời gian hiển thị mà không chồng lên câu kế tiếp; nếu không, để chuỗi rỗng.
Chỉ trả về mảng JSON dạng [{"id": "<targetId>", "afterText": "...", "afterTimestamp": "..."}].`

func titleUserPrompt(title string) string {
	return fmt.Sprintf("Phân tích tiêu đề sau và trả về JSON: %q", strings.TrimSpace(title))
}

func translateUserPrompt(analysis TitleAnalysis, terms []Term, payload string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phim: %s", analysis.TranslatedTitle)
	if analysis.OriginalTitle != "" {
		fmt.Fprintf(&b, " (%s)", analysis.OriginalTitle)
	}
	b.WriteByte('\n')
	if len(analysis.MainGenres) > 0 {
		fmt.Fprintf(&b, "Thể loại: %s\n", strings.Join(analysis.MainGenres, ", "))
	}
	if analysis.Tone != "" {
		fmt.Fprintf(&b, "Tông truyện: %s\n", analysis.Tone)
	}
	if analysis.RecommendedStyle != "" {
		fmt.Fprintf(&b, "Phong cách dịch: %s\n", analysis.RecommendedStyle)
	}
	if len(terms) > 0 {
		fmt.Fprintf(&b, "Thuật ngữ bắt buộc: %s\n", renderTerms(terms))
	}
	b.WriteString("Dữ liệu: ")
	b.WriteString(payload)
	return b.String()
}

// chunkPayload renders [{"id":..., "text":...}] for a translation request.
func chunkPayload(ids, texts []string) (string, error) {
	payload := "[]"
	for i := range ids {
		item, err := sjson.Set("{}", "id", ids[i])
		if err != nil {
			return "", err
		}
		if item, err = sjson.Set(item, "text", texts[i]); err != nil {
			return "", err
		}
		if payload, err = sjson.SetRaw(payload, "-1", item); err != nil {
			return "", err
		}
	}
	return payload, nil
}

// rewritePayload renders {"targets":[...]} for the readability oracle.
func rewritePayload(targets []rewrite.Target) (string, error) {
	payload := `{"targets":[]}`
	for _, target := range targets {
		item := "{}"
		var err error
		for _, field := range []struct {
			path  string
			value any
		}{
			{"targetId", target.TargetID},
			{"currentText", target.CurrentText},
			{"currentCps", target.CurrentCPS},
			{"timestamp", target.Timestamp},
		} {
			if item, err = sjson.Set(item, field.path, field.value); err != nil {
				return "", err
			}
		}
		if item, err = sjson.SetRaw(item, "context", "[]"); err != nil {
			return "", err
		}
		for _, entry := range target.Context {
			ctxItem, err := sjson.Set("{}", "id", entry.ID)
			if err != nil {
				return "", err
			}
			if ctxItem, err = sjson.Set(ctxItem, "text", entry.Text); err != nil {
				return "", err
			}
			if ctxItem, err = sjson.Set(ctxItem, "timestamp", entry.Timestamp); err != nil {
				return "", err
			}
			if item, err = sjson.SetRaw(item, "context.-1", ctxItem); err != nil {
				return "", err
			}
		}
		if payload, err = sjson.SetRaw(payload, "targets.-1", item); err != nil {
			return "", err
		}
	}
	return payload, nil
}

package helper

import (
	"github.com/yourusername/teamquiz-api/internal/domain/entity"
)

// PoemSource - подпись строки стихотворения для режима poetry-pair
type PoemSource struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// ConvertPoemSource извлекает title/author из метаданных вопроса.
// Пустые значения заменяются подписями по умолчанию.
func ConvertPoemSource(metadata entity.Metadata) *PoemSource {
	src := &PoemSource{
		Title:  metadataString(metadata, "title"),
		Author: metadataString(metadata, "author"),
	}
	if src.Title == "" {
		src.Title = "Без названия"
	}
	if src.Author == "" {
		src.Author = "Неизвестный автор"
	}
	return src
}

func metadataString(metadata entity.Metadata, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

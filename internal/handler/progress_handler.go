package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/handler/dto"
	"github.com/yourusername/teamquiz-api/internal/middleware"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
	"github.com/yourusername/teamquiz-api/internal/service"
)

// IdempotencyKeyHeader - заголовок, по которому повтор PATCH /api/progress не применяется дважды
const IdempotencyKeyHeader = "Idempotency-Key"

// ProgressHandler обрабатывает запросы, связанные с прогрессом участников
type ProgressHandler struct {
	progressService ProgressService
	teamService     TeamService
}

// NewProgressHandler создает новый обработчик прогресса
func NewProgressHandler(progressService ProgressService, teamService TeamService) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		teamService:     teamService,
	}
}

// UpdateProgress сохраняет ответ участника на вопрос
func (h *ProgressHandler) UpdateProgress(c *gin.Context) {
	teamID, ok := middleware.TeamIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.teamService.AuthorizeMember(ctx, teamID, req.MemberID); err != nil {
		handleError(c, "ProgressHandler", err)
		return
	}

	result, err := h.progressService.RecordAnswerOnce(ctx, c.GetHeader(IdempotencyKeyHeader), req.MemberID, req.QuestionID, *req.IsCorrect)
	if err != nil {
		handleError(c, "ProgressHandler", err)
		return
	}
	if result.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	c.JSON(http.StatusOK, result)
}

// memberWithBank проверяет участника и возвращает его вместе с закрепленным банком
func (h *ProgressHandler) memberWithBank(c *gin.Context) (*entity.Member, bool) {
	teamID, ok := middleware.TeamIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	memberID := c.MustGet("memberID").(uuid.UUID)

	member, err := h.teamService.AuthorizeMember(c.Request.Context(), teamID, memberID)
	if err != nil {
		handleError(c, "ProgressHandler", err)
		return nil, false
	}
	return member, true
}

// GetReviewSummary возвращает счетчики прогресса участника по закрепленному банку
func (h *ProgressHandler) GetReviewSummary(c *gin.Context) {
	member, ok := h.memberWithBank(c)
	if !ok {
		return
	}
	if !member.HasAssignedBank() {
		handleError(c, "ProgressHandler", fmt.Errorf("member %s has no assigned question bank: %w", member.ID, apperrors.ErrValidation))
		return
	}

	summary, err := h.progressService.ReviewSummary(c.Request.Context(), member.ID, *member.AssignedQuestionBankID)
	if err != nil {
		handleError(c, "ProgressHandler", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ExportProgress выгружает прогресс участника в CSV или XLSX
func (h *ProgressHandler) ExportProgress(c *gin.Context) {
	member, ok := h.memberWithBank(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	rows, err := h.progressService.ProgressReport(c.Request.Context(), member.ID)
	if err != nil {
		handleError(c, "ProgressHandler", err)
		return
	}

	filename := fmt.Sprintf("progress_%s_%s", member.ID, time.Now().Format("2006-01-02"))
	switch format {
	case "xlsx":
		h.exportXLSX(c, rows, filename)
	default:
		h.exportCSV(c, rows, filename)
	}
}

var exportHeaders = []string{"Вопрос", "Ответ", "Статус", "Правильных подряд", "Интервал (дни)", "Ease factor", "Последний ответ", "Следующее повторение"}

func exportRow(r service.ProgressReportRow) []string {
	return []string{
		sanitizeForExcel(r.Question.Prompt),
		sanitizeForExcel(r.Question.Answer),
		translateStatus(r.Progress.Status),
		strconv.Itoa(r.Progress.CorrectStreak),
		strconv.Itoa(r.Progress.Interval),
		strconv.FormatFloat(r.Progress.EaseFactor, 'f', 2, 64),
		formatTime(r.Progress.LastReviewedAt),
		formatTime(r.Progress.NextReviewAt),
	}
}

func (h *ProgressHandler) exportCSV(c *gin.Context, rows []service.ProgressReportRow, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for _, r := range rows {
		writer.Write(exportRow(r))
	}
}

func (h *ProgressHandler) exportXLSX(c *gin.Context, rows []service.ProgressReportRow, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Прогресс"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[ProgressHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, v := range exportHeaders {
		headers[i] = v
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[ProgressHandler] Ошибка записи заголовков: %v", err)
	}

	for i, r := range rows {
		rowNum := i + 2
		cells := exportRow(r)
		row := []interface{}{cells[0], cells[1], cells[2], r.Progress.CorrectStreak, r.Progress.Interval, r.Progress.EaseFactor, cells[6], cells[7]}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			log.Printf("[ProgressHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[ProgressHandler] Ошибка при Flush: %v", err)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[ProgressHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует значения, которые Excel/LibreOffice воспримет как формулу
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

func translateStatus(status entity.ProgressStatus) string {
	switch status {
	case entity.ProgressStatusCorrect:
		return "Выучен"
	case entity.ProgressStatusIncorrect:
		return "Ошибка"
	default:
		return "Без ответа"
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

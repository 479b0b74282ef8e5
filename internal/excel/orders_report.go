package excel

import (
	"fmt"
	"time"

	"betonflow/internal/model"

	"github.com/xuri/excelize/v2"
)

// Generator renders the orders register as an XLSX workbook.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes a summary sheet and a detail sheet. Money columns are
// included only when includeMoney is set (caller checks the role).
func (g *Generator) Generate(orders []model.Order, from, to time.Time, includeMoney bool) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Сводка"
	file.SetSheetName("Sheet1", summarySheet)
	g.writeSummary(file, summarySheet, orders, from, to)

	detailSheet := "Заказы"
	if _, err := file.NewSheet(detailSheet); err != nil {
		return nil, err
	}
	g.writeDetail(file, detailSheet, orders, includeMoney)

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, orders []model.Order, from, to time.Time) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	byStatus := make(map[string]int)
	var totalVolume, deliveredVolume float64
	for _, o := range orders {
		byStatus[o.Status]++
		totalVolume += o.Quantity
		if o.Status == model.OrderCompleted {
			deliveredVolume += o.Quantity
		}
	}

	set("A1", "Реестр заказов")
	set("A2", "Начало периода")
	set("B2", from.Format("02.01.2006"))
	set("A3", "Конец периода")
	set("B3", to.Format("02.01.2006"))
	set("A4", "Количество заказов")
	set("B4", len(orders))
	set("A5", "Общий объем, м3")
	set("B5", totalVolume)
	set("A6", "Доставлено, м3")
	set("B6", deliveredVolume)

	row := 8
	set(fmt.Sprintf("A%d", row), "Статус")
	set(fmt.Sprintf("B%d", row), "Количество")
	for _, status := range []string{
		model.OrderPending, model.OrderConfirmed, model.OrderInProduction,
		model.OrderReady, model.OrderDelivered, model.OrderCompleted, model.OrderCancelled,
	} {
		if byStatus[status] == 0 {
			continue
		}
		row++
		set(fmt.Sprintf("A%d", row), statusLabel(status))
		set(fmt.Sprintf("B%d", row), byStatus[status])
	}
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, orders []model.Order, includeMoney bool) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{"Дата доставки", "Заказчик", "Марка бетона", "Объем, м3", "Объект", "Адрес", "Статус", "Приоритет", "Водитель", "Машина"}
	if includeMoney {
		headers = append(headers, "Цена за м3", "Сумма")
	}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		set(col+"1", h)
	}

	for i, o := range orders {
		row := i + 2
		values := []interface{}{
			o.DeliveryDateTime.Format("02.01.2006 15:04"),
			o.CustomerName,
			o.ConcreteGradeName,
			o.Quantity,
			o.DeliveryObject,
			o.DeliveryAddress,
			statusLabel(o.Status),
			o.Priority,
			o.AssignedDriverName,
			o.AssignedVehicleNumber,
		}
		if includeMoney {
			price, _ := o.Price.Float64()
			total, _ := o.TotalPrice.Float64()
			values = append(values, price, total)
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			set(fmt.Sprintf("%s%d", col, row), v)
		}
	}
}

func statusLabel(status string) string {
	switch status {
	case model.OrderPending:
		return "На рассмотрении"
	case model.OrderConfirmed:
		return "Подтвержден"
	case model.OrderInProduction:
		return "В производстве"
	case model.OrderReady:
		return "Готов к отгрузке"
	case model.OrderDelivered:
		return "Доставлен"
	case model.OrderCompleted:
		return "Выполнен"
	case model.OrderCancelled:
		return "Отменен"
	}
	return status
}

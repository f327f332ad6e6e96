package reports

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type TransitReportFilter struct {
	From *time.Time
	To   *time.Time
}

// TransitRow is one weighment with the bill raised against it, if any.
type TransitRow struct {
	SerialNo     string           `json:"serial_no"`
	EntryDate    time.Time        `json:"entry_date"`
	VehicleNo    string           `json:"vehicle_no"`
	DriverName   string           `json:"driver_name"`
	CustomerName *string          `json:"customer_name"`
	ItemName     *string          `json:"item_name"`
	EmptyWeight  decimal.Decimal  `json:"empty_weight"`
	LoadWeight   *decimal.Decimal `json:"load_weight"`
	NetWeight    decimal.Decimal  `json:"net_weight"`
	IsCompleted  bool             `json:"is_completed"`
	BillSerialNo *string          `json:"bill_serial_no"`
}

func (r TransitRow) Status() string {
	switch {
	case r.BillSerialNo != nil:
		return "Billed"
	case r.IsCompleted:
		return "Loaded"
	default:
		return "In Transit"
	}
}

func (r TransitRow) GetCellValues() []interface{} {
	return []interface{}{
		r.SerialNo, r.EntryDate.Format(utils.DateLayout), r.VehicleNo, r.DriverName,
		utils.DereferencePtr(r.CustomerName, ""), utils.DereferencePtr(r.ItemName, ""),
		r.EmptyWeight, r.LoadWeight, r.NetWeight, r.Status(), utils.DereferencePtr(r.BillSerialNo, ""),
	}
}

var transitHeadings = []string{"Serial No", "Date", "Vehicle No", "Driver", "Customer", "Item",
	"Empty Weight", "Load Weight", "Net Weight", "Status", "Bill No"}

func GetTransitReport(ctx context.Context, filter TransitReportFilter) ([]*TransitRow, error) {
	return cachedReport(ctx, "transit", func(generation string) string {
		return transitReportKey(generation, filter)
	}, func() ([]*TransitRow, error) {
		db := config.GetDB().WithContext(ctx)
		dbCtx := db.Table("outward_entries e").
			Select(`e.serial_no, e.entry_date, e.vehicle_no, e.driver_name, c.name AS customer_name, i.name AS item_name,
			e.empty_weight, e.load_weight, e.net_weight, e.is_completed, s.bill_serial_no`).
			Joins("LEFT JOIN customers c ON c.id = e.customer_id").
			Joins("LEFT JOIN items i ON i.id = e.item_id").
			Joins("LEFT JOIN sales s ON s.outward_entry_id = e.id")
		dbCtx = dateRange(dbCtx, "e.entry_date", filter.From, filter.To)

		var rows []*TransitRow
		err := dbCtx.Order("e.entry_date, e.id").Scan(&rows).Error
		return rows, err
	})
}

func WriteTransitReport(w io.Writer, rows []*TransitRow) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}
	data := make([]ExcelExporter, 0, len(rows))
	net := decimal.Zero
	for _, r := range rows {
		data = append(data, r)
		net = net.Add(r.NetWeight)
	}
	next, err := wb.addSheet("Transit", transitHeadings, data)
	if err != nil {
		return err
	}
	if err := wb.addTotalsRow("Transit", next, map[int]decimal.Decimal{9: net}); err != nil {
		return err
	}
	return wb.write(w)
}

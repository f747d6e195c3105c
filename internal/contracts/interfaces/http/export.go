package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// BuildComparisonPDF renders the ranked comparison as a one-table PDF.
func BuildComparisonPDF(cmp comparisonDTO) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Electricity Contract Comparison")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if cmp.Postcode != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Postcode: %s", cmp.Postcode))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Annual consumption (kWh): %d", cmp.AnnualConsumptionKWh))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(12, 6, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(80, 6, "Contract", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Company", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Model", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Total (EUR/yr)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Monthly (EUR)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, row := range cmp.Ranked {
		pdf.CellFormat(12, 6, fmt.Sprintf("%d", row.Rank), "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, tr(row.Contract.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, tr(row.Contract.CompanySlug), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, row.Contract.PricingModel, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, money(row.Result.TotalCost), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, money(row.Result.AvgMonthlyCost), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(cmp.Excluded) > 0 {
		pdf.Ln(4)
		pdf.Cell(0, 6, fmt.Sprintf("Excluded contracts: %d", len(cmp.Excluded)))
		pdf.Ln(5)
		for _, row := range cmp.Excluded {
			pdf.Cell(0, 6, tr(fmt.Sprintf("%s (%s)", row.Contract.Name, row.Reason)))
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildComparisonXLSX renders the comparison with a summary, ranking and
// excluded sheet.
func BuildComparisonXLSX(cmp comparisonDTO) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	summarySheet := "summary"
	rankingSheet := "ranking"
	excludedSheet := "excluded"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(rankingSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(excludedSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Electricity Contract Comparison")
	_ = f.SetCellValue(summarySheet, "A3", "Postcode")
	_ = f.SetCellValue(summarySheet, "B3", cmp.Postcode)
	_ = f.SetCellValue(summarySheet, "A4", "Annual consumption (kWh)")
	_ = f.SetCellValue(summarySheet, "B4", cmp.AnnualConsumptionKWh)
	_ = f.SetCellValue(summarySheet, "A5", "Ranked contracts")
	_ = f.SetCellValue(summarySheet, "B5", len(cmp.Ranked))
	_ = f.SetCellValue(summarySheet, "A6", "Excluded contracts")
	_ = f.SetCellValue(summarySheet, "B6", len(cmp.Excluded))

	headers := []string{"Rank", "Contract", "Company", "Pricing model", "Metering", "Total (EUR/yr)", "Monthly (EUR)", "CO2 (kg)"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(rankingSheet, cell, header)
	}
	for i, row := range cmp.Ranked {
		r := i + 2
		_ = f.SetCellValue(rankingSheet, fmt.Sprintf("A%d", r), row.Rank)
		_ = f.SetCellValue(rankingSheet, fmt.Sprintf("B%d", r), row.Contract.Name)
		_ = f.SetCellValue(rankingSheet, fmt.Sprintf("C%d", r), row.Contract.CompanySlug)
		_ = f.SetCellValue(rankingSheet, fmt.Sprintf("D%d", r), row.Contract.PricingModel)
		_ = f.SetCellValue(rankingSheet, fmt.Sprintf("E%d", r), row.Contract.Metering)
		_ = f.SetCellValue(rankingSheet, fmt.Sprintf("F%d", r), row.Result.TotalCost.Round(2).InexactFloat64())
		_ = f.SetCellValue(rankingSheet, fmt.Sprintf("G%d", r), row.Result.AvgMonthlyCost.Round(2).InexactFloat64())
		if row.Result.EmissionsKgCO2 != nil {
			_ = f.SetCellValue(rankingSheet, fmt.Sprintf("H%d", r), row.Result.EmissionsKgCO2.InexactFloat64())
		}
	}

	_ = f.SetCellValue(excludedSheet, "A1", "Contract")
	_ = f.SetCellValue(excludedSheet, "B1", "Reason")
	_ = f.SetCellValue(excludedSheet, "C1", "Missing components")
	for i, row := range cmp.Excluded {
		r := i + 2
		_ = f.SetCellValue(excludedSheet, fmt.Sprintf("A%d", r), row.Contract.Name)
		_ = f.SetCellValue(excludedSheet, fmt.Sprintf("B%d", r), row.Reason)
		_ = f.SetCellValue(excludedSheet, fmt.Sprintf("C%d", r), fmt.Sprint(row.Missing))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

package consentrecord

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/leadflow/consent-service/internal/consentrecord/model"
	"github.com/leadflow/consent-service/internal/system/utils"
)

var csvHeader = []string{
	"id", "applicationFormId", "leadId", "clientName", "clientEmail", "consentTemplateId", "consentType",
	"version", "consentGiven", "consentMethod", "recordedAt", "ipAddress", "userAgent", "consentText",
}

// writeCSV renders export rows with a header line. recordedAt is RFC 3339 UTC.
func writeCSV(w io.Writer, rows []model.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(escapeFormulas([]string{
			r.ID,
			r.ApplicationFormID,
			r.LeadID,
			r.ClientName,
			r.ClientEmail,
			r.ConsentTemplateID,
			string(r.ConsentType),
			strconv.Itoa(r.Version),
			strconv.FormatBool(r.ConsentGiven),
			string(r.ConsentMethod),
			utils.MillisToTime(r.RecordedAt).Format("2006-01-02T15:04:05.000Z07:00"),
			deref(r.IPAddress),
			deref(r.UserAgent),
			r.ConsentText,
		})); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// escapeFormulas prefixes cells that a spreadsheet would evaluate as a formula with a single quote.
func escapeFormulas(cells []string) []string {
	for i, cell := range cells {
		if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
			cells[i] = "'" + cell
		}
	}
	return cells
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

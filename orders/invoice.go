package orders

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"pawmart/apperr"
	"pawmart/globals"
	"pawmart/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
)

// DownloadInvoice renders a PDF invoice for a checked-out order. Carts have
// no order number yet and therefore no invoice.
func DownloadInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(globals.UserIDKey).(string)
	role, _ := r.Context().Value(globals.RoleKey).(string)

	order, err := Default().GetByID(ctx, ps.ByName("orderid"))
	if err != nil {
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}
	if order.UserID != userID && role != globals.RoleBusiness {
		utils.RespondWithError(w, http.StatusForbidden, "Not your order")
		return
	}
	if order.OrderNumber == nil {
		utils.RespondWithError(w, http.StatusConflict, "Order has not been checked out yet")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "PawMart Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Order Number: %d", *order.OrderNumber))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Order Date: %s", order.CreatedAt.Format("2006-01-02")))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Status: %s", order.Status))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(90, 8, "Item")
	pdf.Cell(25, 8, "Qty")
	pdf.Cell(35, 8, "Price")
	pdf.Cell(35, 8, "Amount")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	for _, item := range order.Items {
		pdf.Cell(90, 8, item.ItemName)
		pdf.Cell(25, 8, fmt.Sprintf("%d", item.Quantity))
		pdf.Cell(35, 8, fmt.Sprintf("%.2f", item.Price))
		pdf.Cell(35, 8, fmt.Sprintf("%.2f", float64(item.Quantity)*item.Price))
		pdf.Ln(8)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(150, 8, "Total")
	pdf.Cell(35, 8, fmt.Sprintf("%.2f", order.Total))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%d.pdf", *order.OrderNumber))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

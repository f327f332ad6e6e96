package models

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

const eInvoiceVersion = "1.1"

// EInvoicePayload follows the field names of the GST e-invoice schema.
type EInvoicePayload struct {
	Version    string             `json:"Version"`
	TxnDtls    EInvoiceTxnDtls    `json:"TxnDtls"`
	DocDtls    EInvoiceDocDtls    `json:"DocDtls"`
	SellerDtls EInvoiceParty      `json:"SellerDtls"`
	BuyerDtls  EInvoiceParty      `json:"BuyerDtls"`
	ValDtls    EInvoiceValDtls    `json:"ValDtls"`
	IRN        string             `json:"IRN"`
}

type EInvoiceTxnDtls struct {
	TaxSch string `json:"TaxSch"`
	SupTyp string `json:"SupTyp"`
}

type EInvoiceDocDtls struct {
	Typ string `json:"Typ"`
	No  string `json:"No"`
	Dt  string `json:"Dt"`
}

type EInvoiceParty struct {
	Gstin string `json:"Gstin"`
	LglNm string `json:"LglNm"`
	TrdNm string `json:"TrdNm,omitempty"`
	Pos   string `json:"Pos,omitempty"`
	Addr1 string `json:"Addr1"`
	Loc   string `json:"Loc"`
	Pin   int    `json:"Pin,omitempty"`
	Stcd  string `json:"Stcd"`
	Ph    string `json:"Ph,omitempty"`
	Em    string `json:"Em,omitempty"`
}

type EInvoiceValDtls struct {
	AssVal    float64 `json:"AssVal"`
	CgstVal   float64 `json:"CgstVal"`
	SgstVal   float64 `json:"SgstVal"`
	IgstVal   float64 `json:"IgstVal"`
	TotInvVal float64 `json:"TotInvVal"`
}

// e-invoice document type codes
var eInvoiceDocTypes = map[DocumentType]string{
	DocumentTypeSale:       "INV",
	DocumentTypeCreditNote: "CRN",
	DocumentTypeDebitNote:  "DBN",
}

func money(d decimal.Decimal) float64 {
	return utils.RoundMoney(d).InexactFloat64()
}

func pincode(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func sellerDetails(s *CompanySettings) EInvoiceParty {
	return EInvoiceParty{
		Gstin: s.Gstin,
		LglNm: s.LegalName,
		TrdNm: s.TradeName,
		Addr1: s.Address,
		Loc:   s.Location,
		Pin:   pincode(s.Pincode),
		Stcd:  s.StateCode,
		Ph:    s.Phone,
		Em:    s.Email,
	}
}

func buyerDetails(c *Customer) EInvoiceParty {
	stateCode := c.StateCode
	if stateCode == "" {
		stateCode = utils.GSTINStateCode(c.Gstin)
	}
	return EInvoiceParty{
		Gstin: c.Gstin,
		LglNm: c.Name,
		Pos:   stateCode,
		Addr1: c.Address,
		Loc:   c.City,
		Pin:   pincode(c.Pincode),
		Stcd:  stateCode,
		Ph:    c.Phone,
		Em:    c.Email,
	}
}

func newEInvoicePayload(docType DocumentType, no string, date time.Time, irn *string, b utils.GSTBreakup, seller *CompanySettings, buyer *Customer) *EInvoicePayload {
	payload := EInvoicePayload{
		Version: eInvoiceVersion,
		TxnDtls: EInvoiceTxnDtls{TaxSch: "GST", SupTyp: "B2B"},
		DocDtls: EInvoiceDocDtls{
			Typ: eInvoiceDocTypes[docType],
			No:  no,
			Dt:  date.Format("02/01/2006"),
		},
		SellerDtls: sellerDetails(seller),
		BuyerDtls:  buyerDetails(buyer),
		ValDtls: EInvoiceValDtls{
			AssVal:    money(b.Taxable),
			CgstVal:   money(b.CGST),
			SgstVal:   money(b.SGST),
			IgstVal:   0,
			TotInvVal: money(b.Total),
		},
		IRN: utils.DereferencePtr(irn, ""),
	}
	if buyer.Gstin == "" {
		payload.TxnDtls.SupTyp = "B2C"
	}
	return &payload
}

// BuildEInvoicePayload assembles the e-invoice JSON of a sale, credit note or debit note.
func BuildEInvoicePayload(ctx context.Context, docType DocumentType, id int) (*EInvoicePayload, error) {
	seller, err := GetCompanySettings(ctx)
	if err != nil {
		return nil, err
	}

	var (
		customerId int
		no         string
		date       time.Time
		irn        *string
		breakup    utils.GSTBreakup
	)
	switch docType {
	case DocumentTypeSale:
		sale, err := GetSale(ctx, id)
		if err != nil {
			return nil, err
		}
		customerId, no, date, irn, breakup = sale.CustomerId, sale.BillSerialNo, sale.SaleDate, sale.Irn, sale.Breakup()
	case DocumentTypeCreditNote:
		note, err := GetCreditNote(ctx, id)
		if err != nil {
			return nil, err
		}
		customerId, no, date, irn, breakup = note.CustomerId, note.NoteNo, note.NoteDate, note.Irn, note.Breakup()
	case DocumentTypeDebitNote:
		note, err := GetDebitNote(ctx, id)
		if err != nil {
			return nil, err
		}
		customerId, no, date, irn, breakup = note.CustomerId, note.NoteNo, note.NoteDate, note.Irn, note.Breakup()
	default:
		return nil, utils.NewValidationMessage("doc_type", "no e-invoice for "+string(docType))
	}

	customer, err := GetCustomer(ctx, customerId)
	if err != nil {
		return nil, err
	}
	return newEInvoicePayload(docType, no, date, irn, breakup, seller, customer), nil
}

// EInvoiceQRCode renders the payload JSON as a QR PNG.
func EInvoiceQRCode(ctx context.Context, docType DocumentType, id int, size int) ([]byte, error) {
	payload, err := BuildEInvoicePayload(ctx, docType, id)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return utils.QRCodePNG(data, size)
}

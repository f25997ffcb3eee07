package flex

import (
	"encoding/xml"
	"fmt"
)

// Statement is a decoded FlexQueryResponse document.
type Statement struct {
	QueryName string
	Type      string
	Accounts  []AccountStatement
}

// AccountStatement holds one FlexStatement block. Each trade is the raw
// attribute map of a <Trade> element, keyed by the provider's column names.
type AccountStatement struct {
	AccountID     string
	FromDate      string
	ToDate        string
	WhenGenerated string
	Trades        []map[string]string
}

type xmlQueryResponse struct {
	XMLName    xml.Name           `xml:"FlexQueryResponse"`
	QueryName  string             `xml:"queryName,attr"`
	Type       string             `xml:"type,attr"`
	Statements []xmlFlexStatement `xml:"FlexStatements>FlexStatement"`
}

type xmlFlexStatement struct {
	AccountID     string     `xml:"accountId,attr"`
	FromDate      string     `xml:"fromDate,attr"`
	ToDate        string     `xml:"toDate,attr"`
	WhenGenerated string     `xml:"whenGenerated,attr"`
	Trades        []xmlTrade `xml:"Trades>Trade"`
}

type xmlTrade struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

// ParseStatement decodes the payload returned by GetStatement. Only
// execution-level trades are kept; order and summary rows are dropped.
func ParseStatement(payload []byte) (*Statement, error) {
	var doc xmlQueryResponse
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: statement: %w", ErrParse, err)
	}

	st := &Statement{QueryName: doc.QueryName, Type: doc.Type}
	for _, fs := range doc.Statements {
		acct := AccountStatement{
			AccountID:     fs.AccountID,
			FromDate:      fs.FromDate,
			ToDate:        fs.ToDate,
			WhenGenerated: fs.WhenGenerated,
		}
		for _, tr := range fs.Trades {
			row := make(map[string]string, len(tr.Attrs))
			for _, a := range tr.Attrs {
				row[a.Name.Local] = a.Value
			}
			if lvl, ok := row["levelOfDetail"]; ok && lvl != "" && lvl != "EXECUTION" {
				continue
			}
			if _, ok := row["accountId"]; !ok {
				row["accountId"] = fs.AccountID
			}
			acct.Trades = append(acct.Trades, row)
		}
		st.Accounts = append(st.Accounts, acct)
	}
	return st, nil
}

// AccountIDs lists the accounts present in the statement, in document order.
func (s *Statement) AccountIDs() []string {
	ids := make([]string, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		ids = append(ids, a.AccountID)
	}
	return ids
}

// TradesByAccount groups execution rows by account id.
func (s *Statement) TradesByAccount() map[string][]map[string]string {
	out := make(map[string][]map[string]string, len(s.Accounts))
	for _, a := range s.Accounts {
		out[a.AccountID] = append(out[a.AccountID], a.Trades...)
	}
	return out
}

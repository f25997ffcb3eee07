package flex

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	statusSuccess = "Success"
	statusFail    = "Fail"

	envelopeRoot = "FlexStatementResponse"
)

// Failure is the error half of a provider outcome.
type Failure struct {
	Code    string
	Message string
}

// RequestOutcome is the parsed SendRequest response: either a reference
// (ReferenceCode, URL) or a Failure.
type RequestOutcome struct {
	ReferenceCode string
	URL           string
	Failure       *Failure
}

func (o RequestOutcome) OK() bool { return o.Failure == nil }

// StatementOutcome is the parsed GetStatement response: either the raw
// statement or a Failure.
type StatementOutcome struct {
	Payload []byte
	Failure *Failure
}

func (o StatementOutcome) OK() bool { return o.Failure == nil }

type envelope struct {
	XMLName       xml.Name
	Status        string `xml:"Status"`
	ReferenceCode string `xml:"ReferenceCode"`
	URL           string `xml:"Url"`
	ErrorCode     string `xml:"ErrorCode"`
	ErrorMessage  string `xml:"ErrorMessage"`
}

func (e envelope) failure() *Failure {
	return &Failure{
		Code:    strings.TrimSpace(e.ErrorCode),
		Message: strings.TrimSpace(e.ErrorMessage),
	}
}

// ParseRequestResponse decodes a SendRequest body. Malformed XML, or a
// success without a reference code, yields an error wrapping ErrParse.
func ParseRequestResponse(body []byte) (RequestOutcome, error) {
	var env envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return RequestOutcome{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if strings.TrimSpace(env.Status) != statusSuccess {
		return RequestOutcome{Failure: env.failure()}, nil
	}

	ref := strings.TrimSpace(env.ReferenceCode)
	if ref == "" {
		return RequestOutcome{}, fmt.Errorf("%w: success response without reference code", ErrParse)
	}
	return RequestOutcome{ReferenceCode: ref, URL: strings.TrimSpace(env.URL)}, nil
}

// ParseStatementResponse decodes a GetStatement body. A FlexStatementResponse
// root whose Status is not Success is a Failure; any other well-formed
// document is returned verbatim as the payload.
func ParseStatementResponse(body []byte) (StatementOutcome, error) {
	root, err := rootElement(body)
	if err != nil {
		return StatementOutcome{}, err
	}

	if root == envelopeRoot {
		var env envelope
		if err := xml.Unmarshal(body, &env); err != nil {
			return StatementOutcome{}, fmt.Errorf("%w: %w", ErrParse, err)
		}
		if strings.TrimSpace(env.Status) != statusSuccess {
			return StatementOutcome{Failure: env.failure()}, nil
		}
	}
	return StatementOutcome{Payload: body}, nil
}

// rootElement returns the local name of the document element after checking
// the whole body is well formed.
func rootElement(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var root string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrParse, err)
		}
		if se, ok := tok.(xml.StartElement); ok && root == "" {
			root = se.Name.Local
		}
	}
	if root == "" {
		return "", fmt.Errorf("%w: empty document", ErrParse)
	}
	return root, nil
}

package outcome

import (
	"bytes"
	"fmt"

	"ltiprovider/core"
	"ltiprovider/pkg/id"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

const (
	// Namespace lti 1.1 outcome service xml namespace
	Namespace = "http://www.imsglobal.org/services/ltiv1p1/xsd/imsoms_v1p0"

	messageVersion = "V1.0"
	scoreLanguage  = "en"
	successCode    = "success"
)

type codec struct{}

// NewCodec new replace result envelope codec
func NewCodec() core.OutcomeCodec {
	return codec{}
}

func (codec) BuildReplaceResultRequest(sourcedID string, score float64) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	envelope := doc.CreateElement("imsx_POXEnvelopeRequest")
	envelope.CreateAttr("xmlns", Namespace)

	info := envelope.CreateElement("imsx_POXHeader").CreateElement("imsx_POXRequestHeaderInfo")
	info.CreateElement("imsx_version").SetText(messageVersion)
	info.CreateElement("imsx_messageIdentifier").SetText(id.GenUUIDString())

	record := envelope.CreateElement("imsx_POXBody").
		CreateElement("replaceResultRequest").
		CreateElement("resultRecord")
	record.CreateElement("sourcedGUID").CreateElement("sourcedId").SetText(sourcedID)

	resultScore := record.CreateElement("result").CreateElement("resultScore")
	resultScore.CreateElement("language").SetText(scoreLanguage)
	resultScore.CreateElement("textString").SetText(FormatScore(score))

	return doc.WriteToBytes()
}

func (codec) ParseReplaceResultResponse(status int, body []byte) core.OutcomeResult {
	if status != 200 {
		return core.Rejected(core.ReasonUnexpectedStatus, fmt.Sprintf("unexpected status code %d", status))
	}

	body, ok := replaceProlog(body)
	if !ok {
		return core.Rejected(core.ReasonParseError, "unterminated xml declaration")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return core.Rejected(core.ReasonParseError, err.Error())
	}

	if doc.Root() == nil {
		return core.Rejected(core.ReasonParseError, "no root element")
	}

	var codes []*etree.Element
	for _, el := range doc.FindElements("//imsx_codeMajor") {
		if el.NamespaceURI() == Namespace {
			codes = append(codes, el)
		}
	}

	if len(codes) != 1 {
		return core.Rejected(core.ReasonAmbiguousStatus, fmt.Sprintf("expected exactly one imsx_codeMajor, got %d", len(codes)))
	}

	if code := codes[0].Text(); code != successCode {
		return core.Rejected(core.ReasonNonSuccess, fmt.Sprintf("unexpected major code %q", code))
	}

	return core.Accepted()
}

// FormatScore formats score with the fewest digits that read back to the
// same float. Integral scores keep one fractional digit, 1 becomes "1.0".
func FormatScore(score float64) string {
	d := decimal.NewFromFloat(score)
	if d.IsInteger() {
		return d.StringFixed(1)
	}

	return d.String()
}

// replaceProlog swaps a leading xml declaration for one without an encoding
// attribute, some consumers declare encodings they do not use
func replaceProlog(body []byte) ([]byte, bool) {
	const prolog = "<?xml"
	if len(body) < len(prolog) || !bytes.EqualFold(body[:len(prolog)], []byte(prolog)) {
		return body, true
	}

	end := bytes.Index(body, []byte("?>"))
	if end < 0 {
		return nil, false
	}

	return append([]byte(`<?xml version="1.0"?>`), body[end+2:]...), true
}

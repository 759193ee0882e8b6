package cpix

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/cpixkit/cpix/pkg/keyid"
)

// Marshal serializes the document with an XML declaration. Empty lists are
// left out.
func (d *Document) Marshal(indent bool) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("CPIX")
	root.CreateAttr("xmlns", Namespace)
	root.CreateAttr("xmlns:pskc", PSKCNamespace)
	root.CreateAttr("xmlns:xsi", XSINamespace)
	if len(d.DeliveryData) > 0 {
		root.CreateAttr("xmlns:ds", DSNamespace)
		root.CreateAttr("xmlns:enc", ENCNamespace)
	}
	root.CreateAttr("xsi:schemaLocation", SchemaLocation)
	if d.ContentID != "" {
		root.CreateAttr("contentId", d.ContentID)
	}
	if d.Version != "" {
		root.CreateAttr("version", d.Version)
	}

	if len(d.DeliveryData) > 0 {
		list := root.CreateElement("DeliveryDataList")
		for _, dd := range d.DeliveryData {
			appendDeliveryData(list, dd)
		}
	}

	if len(d.ContentKeys) > 0 {
		list := root.CreateElement("ContentKeyList")
		for _, k := range d.ContentKeys {
			el := list.CreateElement("ContentKey")
			el.CreateAttr("kid", k.KID.String())
			el.CreateElement("Data").
				CreateElement("pskc:Secret").
				CreateElement("pskc:PlainValue").
				SetText(base64.StdEncoding.EncodeToString(k.CEK))
		}
	}

	if len(d.DRMSystems) > 0 {
		list := root.CreateElement("DRMSystemList")
		for _, s := range d.DRMSystems {
			el := list.CreateElement("DRMSystem")
			el.CreateAttr("kid", s.KID.String())
			el.CreateAttr("systemId", s.SystemID.String())
			appendBase64(el, "PSSH", s.PSSH)
			appendBase64(el, "ContentProtectionData", s.ContentProtectionData)
			if hls := appendBase64(el, "HLSSignalingData", s.HLSSignalingData); hls != nil {
				hls.CreateAttr("playlist", "media")
			}
			if hls := appendBase64(el, "HLSSignalingData", s.HLSSignalingDataMaster); hls != nil {
				hls.CreateAttr("playlist", "master")
			}
		}
	}

	if len(d.Periods) > 0 {
		list := root.CreateElement("ContentKeyPeriodList")
		for _, p := range d.Periods {
			el := list.CreateElement("ContentKeyPeriod")
			el.CreateAttr("id", p.ID)
			if p.Index != nil {
				el.CreateAttr("index", strconv.Itoa(*p.Index))
			}
			if p.Start != nil {
				el.CreateAttr("start", p.Start.Format(time.RFC3339Nano))
			}
			if p.End != nil {
				el.CreateAttr("end", p.End.Format(time.RFC3339Nano))
			}
		}
	}

	if len(d.UsageRules) > 0 {
		list := root.CreateElement("ContentKeyUsageRuleList")
		for _, r := range d.UsageRules {
			el := list.CreateElement("ContentKeyUsageRule")
			el.CreateAttr("kid", r.KID.String())
			for _, f := range r.Filters {
				if err := appendFilter(el, f); err != nil {
					return nil, newError("marshal", err)
				}
			}
		}
	}

	if indent {
		doc.Indent(2)
	}
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, newError("marshal", err)
	}
	return b, nil
}

func appendBase64(parent *etree.Element, tag string, data []byte) *etree.Element {
	if len(data) == 0 {
		return nil
	}
	el := parent.CreateElement(tag)
	el.SetText(base64.StdEncoding.EncodeToString(data))
	return el
}

func appendDeliveryData(list *etree.Element, dd DeliveryData) {
	el := list.CreateElement("DeliveryData")
	el.CreateElement("DeliveryKey").
		CreateElement("ds:X509Data").
		CreateElement("ds:X509Certificate").
		SetText(base64.StdEncoding.EncodeToString(dd.DeliveryKey))

	doc := el.CreateElement("DocumentKey")
	doc.CreateAttr("Algorithm", ContentKeyWrappingAlgorithm)
	appendEncryptedKey(doc.CreateElement("Data").
		CreateElement("pskc:Secret").
		CreateElement("pskc:EncryptedValue"), dd.DocumentKey)

	if len(dd.MACMethod) > 0 {
		mac := el.CreateElement("MACMethod")
		mac.CreateAttr("Algorithm", EncryptedKeyMACAlgorithm)
		appendEncryptedKey(mac.CreateElement("Key"), dd.MACMethod)
	}
}

func appendEncryptedKey(parent *etree.Element, cipher []byte) {
	parent.CreateElement("enc:EncryptionMethod").CreateAttr("Algorithm", DocumentKeyWrappingAlgorithm)
	parent.CreateElement("enc:CipherData").
		CreateElement("enc:CipherValue").
		SetText(base64.StdEncoding.EncodeToString(cipher))
}

func setInt(el *etree.Element, key string, v int) {
	if v != 0 {
		el.CreateAttr(key, strconv.Itoa(v))
	}
}

func setBool(el *etree.Element, key string, v *bool) {
	if v != nil {
		el.CreateAttr(key, strconv.FormatBool(*v))
	}
}

func appendFilter(parent *etree.Element, f Filter) error {
	el := parent.CreateElement(f.filterName())
	switch f := f.(type) {
	case VideoFilter:
		setInt(el, "minPixels", f.MinPixels)
		setInt(el, "maxPixels", f.MaxPixels)
		setBool(el, "hdr", f.HDR)
		setBool(el, "wcg", f.WCG)
		setInt(el, "minFps", f.MinFPS)
		setInt(el, "maxFps", f.MaxFPS)
	case AudioFilter:
		setInt(el, "minChannels", f.MinChannels)
		setInt(el, "maxChannels", f.MaxChannels)
	case BitrateFilter:
		setInt(el, "minBitrate", f.MinBitrate)
		setInt(el, "maxBitrate", f.MaxBitrate)
	case KeyPeriodFilter:
		el.CreateAttr("periodId", f.PeriodID)
	case LabelFilter:
		el.CreateAttr("label", f.Label)
	default:
		return fmt.Errorf("unsupported filter %T", f)
	}
	return nil
}

// Parse reads a CPIX document. Elements in any namespace are matched by
// local name; unknown elements are ignored.
func Parse(b []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, newError("parse", fmt.Errorf("%w: %v", ErrInvalidDocument, err))
	}
	root := doc.Root()
	if root == nil || root.Tag != "CPIX" {
		return nil, newError("parse", fmt.Errorf("%w: root element is not CPIX", ErrInvalidDocument))
	}

	d := &Document{
		ContentID: root.SelectAttrValue("contentId", ""),
		Version:   root.SelectAttrValue("version", ""),
	}
	var err error
	for _, list := range root.ChildElements() {
		switch list.Tag {
		case "DeliveryDataList":
			err = parseDeliveryData(d, list)
		case "ContentKeyList":
			err = parseContentKeys(d, list)
		case "DRMSystemList":
			err = parseDRMSystems(d, list)
		case "ContentKeyPeriodList":
			err = parsePeriods(d, list)
		case "ContentKeyUsageRuleList":
			err = parseUsageRules(d, list)
		}
		if err != nil {
			return nil, newError("parse", fmt.Errorf("%w: %s: %v", ErrInvalidDocument, list.Tag, err))
		}
	}
	return d, nil
}

func parseKID(el *etree.Element) (keyid.KeyID, error) {
	attr := el.SelectAttr("kid")
	if attr == nil {
		return keyid.Nil, fmt.Errorf("%s: missing kid", el.Tag)
	}
	return keyid.Parse(attr.Value)
}

func decodeText(el *etree.Element) ([]byte, error) {
	if el == nil {
		return nil, nil
	}
	s := strings.Join(strings.Fields(el.Text()), "")
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", el.Tag, err)
	}
	return b, nil
}

func parseDeliveryData(d *Document, list *etree.Element) error {
	for _, el := range list.SelectElements("DeliveryData") {
		var (
			dd  DeliveryData
			err error
		)
		cert := el.FindElement("DeliveryKey//X509Certificate")
		if cert == nil {
			return fmt.Errorf("DeliveryData: missing X509Certificate")
		}
		if dd.DeliveryKey, err = decodeText(cert); err != nil {
			return err
		}
		key := el.FindElement("DocumentKey//CipherValue")
		if key == nil {
			return fmt.Errorf("DocumentKey: missing CipherValue")
		}
		if dd.DocumentKey, err = decodeText(key); err != nil {
			return err
		}
		if dd.MACMethod, err = decodeText(el.FindElement("MACMethod//CipherValue")); err != nil {
			return err
		}
		d.DeliveryData = append(d.DeliveryData, dd)
	}
	return nil
}

func parseContentKeys(d *Document, list *etree.Element) error {
	for _, el := range list.SelectElements("ContentKey") {
		kid, err := parseKID(el)
		if err != nil {
			return err
		}
		cek, err := decodeText(el.FindElement("Data/Secret/PlainValue"))
		if err != nil {
			return err
		}
		d.ContentKeys = append(d.ContentKeys, ContentKey{KID: kid, CEK: cek})
	}
	return nil
}

func parseDRMSystems(d *Document, list *etree.Element) error {
	for _, el := range list.SelectElements("DRMSystem") {
		kid, err := parseKID(el)
		if err != nil {
			return err
		}
		systemID, err := uuid.Parse(el.SelectAttrValue("systemId", ""))
		if err != nil {
			return fmt.Errorf("systemId: %w", err)
		}
		s := DRMSystem{KID: kid, SystemID: systemID}
		if s.PSSH, err = decodeText(el.SelectElement("PSSH")); err != nil {
			return err
		}
		if s.ContentProtectionData, err = decodeText(el.SelectElement("ContentProtectionData")); err != nil {
			return err
		}
		for _, hls := range el.SelectElements("HLSSignalingData") {
			data, err := decodeText(hls)
			if err != nil {
				return err
			}
			switch hls.SelectAttrValue("playlist", "media") {
			case "master":
				s.HLSSignalingDataMaster = data
			default:
				s.HLSSignalingData = data
			}
		}
		d.DRMSystems = append(d.DRMSystems, s)
	}
	return nil
}

func parsePeriods(d *Document, list *etree.Element) error {
	for _, el := range list.SelectElements("ContentKeyPeriod") {
		p := Period{ID: el.SelectAttrValue("id", "")}
		if v := el.SelectAttr("index"); v != nil {
			i, err := strconv.Atoi(v.Value)
			if err != nil {
				return fmt.Errorf("period %s index: %w", p.ID, err)
			}
			p.Index = &i
		}
		for _, f := range []struct {
			key string
			dst **time.Time
		}{{"start", &p.Start}, {"end", &p.End}} {
			if v := el.SelectAttr(f.key); v != nil {
				t, err := time.Parse(time.RFC3339Nano, v.Value)
				if err != nil {
					return fmt.Errorf("period %s %s: %w", p.ID, f.key, err)
				}
				*f.dst = &t
			}
		}
		d.Periods = append(d.Periods, p)
	}
	return nil
}

func parseUsageRules(d *Document, list *etree.Element) error {
	for _, el := range list.SelectElements("ContentKeyUsageRule") {
		kid, err := parseKID(el)
		if err != nil {
			return err
		}
		rule := UsageRule{KID: kid}
		for _, fe := range el.ChildElements() {
			f, err := parseFilter(fe)
			if err != nil {
				return err
			}
			if f != nil {
				rule.Filters = append(rule.Filters, f)
			}
		}
		d.UsageRules = append(d.UsageRules, rule)
	}
	return nil
}

func parseFilter(el *etree.Element) (Filter, error) {
	var err error
	intAttr := func(key string) int {
		v := el.SelectAttr(key)
		if v == nil || err != nil {
			return 0
		}
		n, perr := strconv.Atoi(v.Value)
		if perr != nil {
			err = fmt.Errorf("%s %s: %w", el.Tag, key, perr)
		}
		return n
	}
	boolAttr := func(key string) *bool {
		v := el.SelectAttr(key)
		if v == nil || err != nil {
			return nil
		}
		b, perr := strconv.ParseBool(v.Value)
		if perr != nil {
			err = fmt.Errorf("%s %s: %w", el.Tag, key, perr)
		}
		return &b
	}

	var f Filter
	switch el.Tag {
	case "VideoFilter":
		f = VideoFilter{
			MinPixels: intAttr("minPixels"),
			MaxPixels: intAttr("maxPixels"),
			HDR:       boolAttr("hdr"),
			WCG:       boolAttr("wcg"),
			MinFPS:    intAttr("minFps"),
			MaxFPS:    intAttr("maxFps"),
		}
	case "AudioFilter":
		f = AudioFilter{MinChannels: intAttr("minChannels"), MaxChannels: intAttr("maxChannels")}
	case "BitrateFilter":
		f = BitrateFilter{MinBitrate: intAttr("minBitrate"), MaxBitrate: intAttr("maxBitrate")}
	case "KeyPeriodFilter":
		f = KeyPeriodFilter{PeriodID: el.SelectAttrValue("periodId", "")}
	case "LabelFilter":
		f = LabelFilter{Label: el.SelectAttrValue("label", "")}
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

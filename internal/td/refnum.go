package td

import (
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/stream"
)

// RefType identifies the kind of a refnum descriptor.
type RefType uint16

const (
	RefDataLogFile       RefType = 0x01
	RefIVI               RefType = 0x02
	RefVisa              RefType = 0x03
	RefOccurrence        RefType = 0x04
	RefTCPConnection     RefType = 0x05
	RefImaq              RefType = 0x06
	RefControlRefnum     RefType = 0x08
	RefUsrDefTagFlt      RefType = 0x0A
	RefDataSocket        RefType = 0x0D
	RefUDPConnection     RefType = 0x10
	RefNotifierRefnum    RefType = 0x11
	RefQueue             RefType = 0x12
	RefIrDAConnection    RefType = 0x13
	RefChannel           RefType = 0x14
	RefSharedVariable    RefType = 0x15
	RefUsrDefined        RefType = 0x16
	RefEventRegistration RefType = 0x17
	RefUsrDefndTag       RefType = 0x18
	RefUserEvent         RefType = 0x19
	RefUDClassInst       RefType = 0x1D
	RefClass             RefType = 0x1E
	RefBluetoothConnectn RefType = 0x1F
	RefDataValueRef      RefType = 0x20
	RefFIFORefnum        RefType = 0x21
)

var refTypeNames = map[RefType]string{
	RefDataLogFile:       "DataLogFile",
	RefIVI:               "IVIRef",
	RefVisa:              "VisaRef",
	RefImaq:              "Imaq",
	RefUsrDefTagFlt:      "UsrDefTagFlt",
	RefUsrDefined:        "UsrDefined",
	RefUsrDefndTag:       "UsrDefndTag",
	RefUDClassInst:       "UDClassInst",
	RefOccurrence:        "Occurrence",
	RefTCPConnection:     "TCPConnection",
	RefControlRefnum:     "ControlRefnum",
	RefDataSocket:        "DataSocket",
	RefUDPConnection:     "UDPConnection",
	RefNotifierRefnum:    "NotifierRefnum",
	RefQueue:             "Queue",
	RefIrDAConnection:    "IrDAConnection",
	RefChannel:           "Channel",
	RefSharedVariable:    "SharedVariable",
	RefEventRegistration: "EventRegistration",
	RefUserEvent:         "UserEvent",
	RefClass:             "Class",
	RefBluetoothConnectn: "BluetoothConnectn",
	RefDataValueRef:      "DataValueRef",
	RefFIFORefnum:        "FIFORefnum",
}

func (rt RefType) String() string {
	if name, ok := refTypeNames[rt]; ok {
		return name
	}
	return fmt.Sprintf("RefType(0x%02X)", uint16(rt))
}

// parseRefPayload decodes the kind-specific payload that follows the
// refnum type word. Most kinds carry nothing; the rest store a short list
// of type indices plus a few flags.
func (p *parser) parseRefPayload(body *RefBody, br *stream.Reader, index int32) error {
	switch body.RefKind {
	case RefControlRefnum:
		if err := p.parseRefClients(body, br); err != nil {
			return err
		}
		ctlFlags, err := br.ReadU32()
		if err != nil {
			return err
		}
		body.CtlFlags = ctlFlags
		if len(body.Clients) > 1 {
			p.warnf(index, "control refnum has %d clients, expected at most 1", len(body.Clients))
		}
	case RefDataLogFile, RefQueue, RefUserEvent, RefNotifierRefnum, RefFIFORefnum:
		if err := p.parseRefClients(body, br); err != nil {
			return err
		}
		if len(body.Clients) > 1 {
			p.warnf(index, "refnum %v has %d clients, expected at most 1", body.RefKind, len(body.Clients))
		}
	case RefEventRegistration:
		tmp1, err := br.ReadU16()
		if err != nil {
			return err
		}
		body.Tmp1 = tmp1
		count, err := br.ReadU16()
		if err != nil {
			return err
		}
		if int(count) > p.limit {
			count = uint16(p.limit)
		}
		body.Clients = make([]Client, count)
		body.EventFields = make([][3]uint16, count)
		for i := range body.Clients {
			for k := 0; k < 3; k++ {
				v, err := br.ReadU16()
				if err != nil {
					return err
				}
				body.EventFields[i][k] = v
			}
			cliIdx, err := br.ReadU16()
			if err != nil {
				return err
			}
			body.Clients[i].Index = int32(cliIdx)
		}
		if body.Tmp1 != 0 {
			p.warnf(index, "event registration refnum field1 %d, expected 0", body.Tmp1)
		}
		if len(body.Clients) < 1 {
			p.warnf(index, "event registration refnum has no clients")
		}
	case RefDataValueRef:
		if err := p.parseRefClients(body, br); err != nil {
			return err
		}
		valFlags, err := br.ReadU8()
		if err != nil {
			return err
		}
		body.ValFlags = valFlags
		if len(body.Clients) > 1 {
			p.warnf(index, "data value refnum has %d clients, expected at most 1", len(body.Clients))
		}
	}
	return nil
}

func (p *parser) parseRefClients(body *RefBody, br *stream.Reader) error {
	count, err := br.ReadU16()
	if err != nil {
		return err
	}
	if int(count) > p.limit {
		count = uint16(p.limit)
	}
	body.Clients = make([]Client, count)
	for i := range body.Clients {
		cliIdx, err := br.ReadU16()
		if err != nil {
			return err
		}
		body.Clients[i].Index = int32(cliIdx)
	}
	return nil
}

// encodeRefPayload is the inverse of parseRefPayload.
func encodeRefPayload(body *RefBody, w *stream.Writer) {
	switch body.RefKind {
	case RefControlRefnum:
		encodeRefClients(body, w)
		w.WriteU32(body.CtlFlags)
	case RefDataLogFile, RefQueue, RefUserEvent, RefNotifierRefnum, RefFIFORefnum:
		encodeRefClients(body, w)
	case RefEventRegistration:
		w.WriteU16(body.Tmp1)
		w.WriteU16(uint16(len(body.Clients)))
		for i, cli := range body.Clients {
			var fields [3]uint16
			if i < len(body.EventFields) {
				fields = body.EventFields[i]
			}
			for _, v := range fields {
				w.WriteU16(v)
			}
			w.WriteU16(uint16(cli.Index))
		}
	case RefDataValueRef:
		encodeRefClients(body, w)
		w.WriteU8(body.ValFlags)
	}
}

func encodeRefClients(body *RefBody, w *stream.Writer) {
	w.WriteU16(uint16(len(body.Clients)))
	for _, cli := range body.Clients {
		w.WriteU16(uint16(cli.Index))
	}
}

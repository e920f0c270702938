package inventory

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NoLot es el valor canónico para "sin lote". NULL, "" y "-" se guardan así en todas las tablas.
const NoLot = ""

// NormalizeLot devuelve el lote canónico para un valor opcional (nil = NULL en origen).
func NormalizeLot(raw *string) string {
	if raw == nil {
		return NoLot
	}
	return NormalizeLotString(*raw)
}

// NormalizeLotString aplica NFKC (el "－" de ancho completo de hojas de cálculo pasa a "-"),
// recorta espacios y colapsa "", "-" (o "--") a NoLot.
func NormalizeLotString(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if s == "" || strings.Trim(s, "-") == "" {
		return NoLot
	}
	return s
}

// Key identifica una fila de saldo (medicamento, lote canónico).
type Key struct {
	DrugCode string
	LotNo    string
}

// NewKey normaliza el código de medicamento y el lote opcional de una petición.
func NewKey(drugCode string, lotNo *string) Key {
	return Key{DrugCode: strings.TrimSpace(drugCode), LotNo: NormalizeLot(lotNo)}
}

// Less ordena claves para tomar bloqueos siempre en el mismo orden (evita deadlocks).
func (k Key) Less(o Key) bool {
	if k.DrugCode != o.DrugCode {
		return k.DrugCode < o.DrugCode
	}
	return k.LotNo < o.LotNo
}

package dto

// Envelope cuerpo común de todas las respuestas del ledger de farmacia.
//
//	éxito: {success: true, message, data}
//	error: {success: false, message, error}
type Envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody detalle del error. Details lleva datos estructurados (p. ej. stock insuficiente).
type ErrorBody struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// InsufficientStockDetails detalle de una salida rechazada por falta de saldo.
type InsufficientStockDetails struct {
	DrugCode  string `json:"drug_code"`
	LotNo     string `json:"lot_no"`
	Available string `json:"available"`
	Requested string `json:"requested"`
}

// OK construye un envelope de éxito.
func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// Fail construye un envelope de error.
func Fail(message, code string, details any) Envelope {
	return Envelope{Success: false, Message: message, Error: &ErrorBody{Code: code, Details: details}}
}

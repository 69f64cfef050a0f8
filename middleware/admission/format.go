// utilitário pequeno para formatação consistente de valores numéricos em headers.
// Padroniza a formatação do float (strconv.FormatFloat), evitando notação científica
// em valores comuns.

package admission

import (
	"math"
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// retryAfterSeconds arredonda para cima: o cliente nunca volta cedo demais.
// O header Retry-After não aceita frações e o mínimo é 1. Resíduos de ponto
// flutuante abaixo de 1ms são descartados antes do arredondamento.
func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Round(time.Millisecond).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return formatInt(secs)
}

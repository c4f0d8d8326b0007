package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var months = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
	"agosto", "septiembre", "octubre", "noviembre", "diciembre"}

// longDate renders "martes, 20 de octubre de 2026".
func longDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d", weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Year())
}

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="UTF-8"></head>
<body>
  <h1>¡Bienvenid@, {{.Name}}!</h1>
  <p>Has creado tu cuenta en {{.Business}} exitosamente.</p>
  <ul>
    <li>Reserva tus citas online cuando quieras.</li>
    <li>Consulta tu historial de citas.</li>
    <li>A partir de tu segunda cita obtendrás {{.Discount}}€ de descuento.</li>
  </ul>
  <p>© {{.Year}} {{.Business}}. Todos los derechos reservados.</p>
</body>
</html>`))

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="UTF-8"></head>
<body>
  <h1>Tu cita está confirmada</h1>
  <p>Hola {{.Name}}, estamos encantados de confirmar tu cita.</p>
  <table>
    <tr><td>Servicio</td><td>{{.ServiceName}}</td></tr>
    <tr><td>Fecha</td><td>{{.Date}}</td></tr>
    <tr><td>Hora</td><td>{{.Time}}</td></tr>
    <tr><td>Duración</td><td>{{.DurationMinutes}} min</td></tr>
    <tr><td>Precio</td><td>{{.Price}}€</td></tr>
    <tr><td>Pago</td><td>{{.PaymentStatus}}</td></tr>
  </table>
  {{if .Discounted}}<p>¡Has usado tu descuento de cliente habitual! Gracias por confiar en nosotros.</p>
  {{else}}<p>En tu próxima reserva obtendrás {{.Discount}}€ de descuento automático.</p>{{end}}
  {{if .CalendarLink}}<p><a href="{{.CalendarLink}}">Añadir a Google Calendar</a></p>{{end}}
  <p>© {{.Year}} {{.Business}}. Todos los derechos reservados.</p>
</body>
</html>`))

func renderWelcome(w Welcome, business, discount string, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := welcomeTmpl.Execute(&buf, map[string]any{
		"Name":     w.Name,
		"Business": business,
		"Discount": discount,
		"Year":     now.Year(),
	})
	return buf.String(), err
}

func renderConfirmation(b BookingConfirmation, business, discount string, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, map[string]any{
		"Name":            b.Name,
		"ServiceName":     b.ServiceName,
		"Date":            longDate(b.Start),
		"Time":            b.Start.Format("15:04"),
		"DurationMinutes": b.DurationMinutes,
		"Price":           b.Price,
		"PaymentStatus":   b.PaymentStatus,
		"Discounted":      b.Discounted,
		"Discount":        discount,
		"CalendarLink":    b.CalendarLink,
		"Business":        business,
		"Year":            now.Year(),
	})
	return buf.String(), err
}

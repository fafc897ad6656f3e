package prompt

// Short replies used by the intake script and the fallbacks.
const (
	AskFullName = "Para continuar, ¿cuál es tu *nombre completo*?"
	AskPhone    = "¡Gracias! 📞 ¿Cuál es tu número de *teléfono*?"
	AskEmail    = "Perfecto. 📧 ¿Cuál es tu *correo electrónico*?"
	AskZone     = "¡Listo! Registramos tus datos. 🙌\n\n¿Qué zona de Florida te interesa?"
	ZoneSaved   = "📍 Zona registrada: *%s*\n\nUn agente certificado se pondrá en contacto contigo muy pronto. Mientras tanto, puedes escribirme cualquier pregunta sobre propiedades en Florida."
	EmptyText   = "No recibí ningún texto. ¿Podrías escribirlo de nuevo?"

	UnknownOption = "Opción no reconocida. Usa /help para ver las opciones disponibles."
	GenericError  = "Lo siento, ocurrió un error. Por favor, intenta de nuevo o usa /start."

	CompletionAuthError = "Error de autenticación con el servicio de IA. Por favor, verifica la configuración de la API."
	CompletionRateLimit = "He alcanzado el límite de solicitudes. Por favor, inténtalo de nuevo en un momento."
	CompletionFallback  = "Lo siento, estoy teniendo problemas para procesar tu solicitud. ¿Podrías intentarlo de nuevo o preguntarme algo más específico sobre propiedades en Florida?"
	CompletionDegraded  = "¡Gracias por tu mensaje! 📝\n\nEstoy procesando tu consulta sobre propiedades en Florida. Pronto tendré más funcionalidades para asistirte mejor.\n\nMientras tanto, puedes usar /start para registrarte o /help para ver cómo puedo ayudarte."

	ButtonBuyer    = "🏠 Comprador"
	ButtonInvestor = "💰 Inversor"
	ButtonAdvisory = "📊 Asesoría"
)

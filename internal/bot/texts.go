package bot

// User-facing copy
const (
	textGreetingNew       = "Dear %s...\n\nHello! 🌿"
	textGreetingReturning = "Dear friend...\n\nGlad to see you again! 🌿"
	textRequestPrompt     = "✨ Now think about your request...\n\nAnd write it here in one sentence to bring it into form... ✨"
	textRequestEmpty      = "Please write your request as a single sentence of text."
	textRequestReceived   = "WONDERFUL!\n\nLet's begin! 💫"
	textCardsUnavailable  = "Sorry, the cards are unavailable right now. Please try again later."
	textImageUnavailable  = "Sorry, the %s card could not be loaded. Please try again."
	textDeliveryFailed    = "Sorry, the %s card could not be delivered. Please try again."
	textFollowUp          = "Did you get an answer to your request, or do you need hints? 🆘"
	textNoHints           = "There are no hints for these cards yet."
	textClosing           = "Wonderful! May your day be filled with clarity and purpose. I'm here whenever you want another reading or to go deeper."
	textSessionLost       = "Sorry, I can't find your session. Send /start to begin again."
	textReset             = "Your session has been reset. Send /start whenever you are ready."
	textUnknownCommand    = "Unknown command. Send /start to begin a reading."
	textInvalidAction     = "That button is no longer valid. Send /start to begin again."
	textCardNotFound      = "Sorry, that card could not be found."
	textInternalError     = "An error occurred while processing your request. Please try again."

	buttonDraw        = "Draw the cards"
	buttonNeedHints   = "Need hints"
	buttonGotInsights = "Got it ❤️"
	buttonDescribe    = "Full description"
)

// Callback data tokens
const (
	callbackDraw        = "draw_cards"
	callbackNeedHints   = "need_hints"
	callbackInsights    = "received_insights"
	callbackDescribePfx = "describe:"
)

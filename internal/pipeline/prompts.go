// ABOUTME: Prompt templates for the response pipeline
// ABOUTME: Defines the assistant persona prompt and the intent classification prompt

package pipeline

// systemPromptTemplate is the assistant persona. Placeholders are filled by
// buildSystemPrompt from the assembled conversation context.
const systemPromptTemplate = `Ты — {name}, {role}.
{system_instructions}

**Тон общения:** {tone}

**Твои возможности:**
1. Отвечать на вопросы клиентов о услугах и ценах.
2. Помогать с бронированием слотов.
3. Обрабатывать запросы и передавать сложные случаи оператору.

**Правила:**
- Будь {tone}.
- Отвечай кратко и по делу.
- Если не знаешь ответа, честно скажи об этом.
- Всегда предлагай следующий шаг (например, "Хотите забронировать?").

**Контекст бизнеса:**
{business_context}

**История переписки:**
{chat_history}
`

// intentPromptTemplate asks the model for exactly one category label.
const intentPromptTemplate = `Классифицируй следующее сообщение пользователя по одной из категорий:
- booking_request: Запрос на бронирование
- pricing_query: Вопрос о ценах
- general_inquiry: Общий вопрос
- complaint: Жалоба
- handoff_request: Просьба связаться с оператором

Сообщение: "{message}"

Ответь ТОЛЬКО названием категории, без объяснений.`

const (
	emptyBusinessContext = "Информация о бизнесе не указана."
	emptyChatHistory     = "Это начало диалога."
)

// FallbackReply is returned when generation fails outright.
const FallbackReply = "Извините, произошла ошибка. Попробуйте позже или свяжитесь с оператором."

package service

import "errors"

// Ошибки бизнес-логики, которые HTTP слой маппит в статусы ответов
// Всё остальное (ошибки Stripe, DynamoDB, S3) считается upstream ошибкой и даёт 500
var (
	// ErrValidation — отсутствует или пуст обязательный параметр запроса (400)
	ErrValidation = errors.New("validation failed")

	// ErrPaymentIncomplete — payment intent не в статусе succeeded (400)
	// Ошибка терминальная: повторять запрос без новой оплаты бессмысленно
	ErrPaymentIncomplete = errors.New("payment not completed")

	// ErrSignature — подпись webhook не прошла проверку (400)
	ErrSignature = errors.New("webhook signature verification failed")
)

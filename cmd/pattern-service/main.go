package main

import "recurring-patterns-system/internal/bootstrap/pattern"

// @title Recurring Patterns System API
// @version 1.0
// @description Сервис обнаружения повторяющихся финансовых паттернов и отслеживания обязательств
// @host localhost:8080
// @BasePath /api/v1
func main() { pattern.StartPatternService() }

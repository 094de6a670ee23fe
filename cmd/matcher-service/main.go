package main

import "recurring-patterns-system/internal/bootstrap/matcher"

func main() { matcher.StartMatcherService() }

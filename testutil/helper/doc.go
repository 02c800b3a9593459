// Package helper provides test fixtures, Given* arrangement helpers and observability spies
// shared by the lending engine tests.
package helper

// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

// Package infect estimates the number of currently-infected people from a daily
// series of new cases, and derives an effective reproduction (contact) rate from
// that estimate.
//
// Each day's new cases are assumed to stay infected for a random duration drawn
// from a mixture of two gamma distributions: one for people who will recover
// and one for people who will die. Convolving the case series with the
// mixture's survival function gives the infected count I. The reproduction rate
// is then R[t] = cases[t+1] / I[t] * μ, where μ is the mean infectious duration.
// This is a simple renewal approximation rather than a likelihood-based
// estimator such as Cori et al.'s.
package infect

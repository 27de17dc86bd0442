package index

import (
	"testing/fstest"
)

// FixtureFS returns a small, valid index for tests.
//
// Guests: Sean Ellis (two episodes), Rahul Vohra, Julie Zhuo, Brian Balfour.
// Themes: pmf, growth, leadership.
func FixtureFS() fstest.MapFS {
	return fstest.MapFS{
		"themes.json": {Data: []byte(`{"themes": [
			{"id": "pmf", "name": "Product-Market Fit", "description": "Finding and measuring product-market fit"},
			{"id": "growth", "name": "Growth", "description": "Acquisition, retention and growth loops"},
			{"id": "leadership", "name": "Leadership", "description": "Managing teams and hiring"}
		]}`)},
		"episodes.json": {Data: []byte(`{"episodes": [
			{"id": "sean-ellis", "title": "Sean Ellis on the PMF survey", "guest": "Sean Ellis",
			 "summary": "The 40% very disappointed test and leading indicators.",
			 "theme_ids": ["pmf", "growth"], "deep_link_base": "https://www.youtube.com/watch?v=seanellis"},
			{"id": "rahul-vohra", "title": "Rahul Vohra on the Superhuman PMF engine", "guest": "Rahul Vohra",
			 "summary": "Segmenting users to raise the PMF score.",
			 "theme_ids": ["pmf"], "deep_link_base": "https://youtu.be/rahul"},
			{"id": "julie-zhuo", "title": "Julie Zhuo on becoming a manager", "guest": "Julie Zhuo",
			 "summary": "What first-time managers get wrong.",
			 "theme_ids": ["leadership"], "deep_link_base": "https://youtu.be/julie"},
			{"id": "brian-balfour", "title": "Brian Balfour on growth loops", "guest": "Brian Balfour",
			 "summary": "Why loops beat funnels.",
			 "theme_ids": ["growth"], "deep_link_base": "https://youtu.be/brian"},
			{"id": "sean-ellis-growth", "title": "Sean Ellis on growth teams", "guest": "Sean Ellis",
			 "summary": "Structuring a high-tempo growth team.",
			 "theme_ids": ["growth"], "deep_link_base": "https://youtu.be/seangrowth"}
		]}`)},
		"topics/sean-ellis.json": {Data: []byte(`{"topics": [
			{"id": "sean-ellis_t1", "label": "The 40% survey", "description": "How the very disappointed survey works"},
			{"id": "sean-ellis_t2", "label": "Leading indicators", "description": "Retention as the signal of real value"}
		]}`)},
		"topics/rahul-vohra.json": {Data: []byte(`{"topics": [
			{"id": "rahul-vohra_t1", "label": "Segmenting for PMF", "description": "Focusing on users who love the product"}
		]}`)},
		"topics/julie-zhuo.json": {Data: []byte(`{"topics": [
			{"id": "julie-zhuo_t1", "label": "First-time managers", "description": "The job of a manager"}
		]}`)},
		"topics/brian-balfour.json": {Data: []byte(`{"topics": [
			{"id": "brian-balfour_t1", "label": "Growth loops vs funnels", "description": "Compounding growth"}
		]}`)},
		"topics/sean-ellis-growth.json": {Data: []byte(`{"topics": [
			{"id": "sean-ellis-growth_t1", "label": "Building a growth team", "description": "Experiments across the funnel"}
		]}`)},
		"quotes/sean-ellis_t1.json": {Data: []byte(`{"quotes": [
			{"text": "If 40 percent of users would be very disappointed without your product, you likely have product market fit.",
			 "speaker": "Sean Ellis", "timestamp": "00:05:10", "episode_id": "sean-ellis"},
			{"text": "The survey question is simple: how would you feel if you could no longer use the product?",
			 "speaker": "Sean Ellis", "timestamp": "00:06:02", "episode_id": "sean-ellis"}
		]}`)},
		"quotes/sean-ellis_t2.json": {Data: []byte(`{"quotes": [
			{"text": "Retention is the clearest leading indicator that the value is real.",
			 "speaker": "Sean Ellis", "timestamp": "00:12:30", "episode_id": "sean-ellis"}
		]}`)},
		"quotes/rahul-vohra_t1.json": {Data: []byte(`{"quotes": [
			{"text": "We segmented out the users who would not be disappointed and focused on the ones who loved us.",
			 "speaker": "Rahul Vohra", "timestamp": "00:10:00", "episode_id": "rahul-vohra"}
		]}`)},
		"quotes/julie-zhuo_t1.json": {Data: []byte(`{"quotes": [
			{"text": "Your job as a manager is to get better outcomes from a group of people working together.",
			 "speaker": "Julie Zhuo", "timestamp": "00:02:45", "episode_id": "julie-zhuo"}
		]}`)},
		"quotes/brian-balfour_t1.json": {Data: []byte(`{"quotes": [
			{"text": "Growth loops compound, while funnels leak at every step.",
			 "speaker": "Brian Balfour", "timestamp": "00:08:20", "episode_id": "brian-balfour"}
		]}`)},
		"quotes/sean-ellis-growth_t1.json": {Data: []byte(`{"quotes": [
			{"text": "A growth team should run experiments across the whole funnel, not just acquisition.",
			 "speaker": "Sean Ellis", "timestamp": "00:03:15", "episode_id": "sean-ellis-growth"}
		]}`)},
	}
}

// MustLoadFixture loads FixtureFS and panics on failure.
func MustLoadFixture() *Store {
	s, err := Load(FixtureFS())
	if err != nil {
		panic(err)
	}
	return s
}

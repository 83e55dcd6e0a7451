package report

// Built-in Markdown templates, one per classified intent plus a generic
// fallback. They deliberately contain no timestamps or run identifiers
// so that two runs over identical findings produce identical reports.

const findingsSection = `{{if .Caveat}}> {{.Caveat}}

{{end}}{{range .Findings}}### {{.SubQuery}}

**{{.Title}}**

{{.Content}}

{{end}}`

const sourcesSection = `{{if .Sources}}## Sources

{{range .Sources}}{{.N}}. {{.URL}}
{{end}}{{end}}`

const genericTemplate = `# Research Report: {{.Title}}

**Research question:** {{.Query}}

## Findings

` + findingsSection + sourcesSection

const comparisonTemplate = `# Comparison: {{.Title}}

**Research question:** {{.Query}}

## Summary

The findings below contrast the subjects of the query side by side.
Each section corresponds to one research angle.

## Points of Comparison

` + findingsSection + sourcesSection

const deepDiveTemplate = `# Deep Dive: {{.Title}}

**Research question:** {{.Query}}

## Overview

This report examines the topic in depth, one research angle at a time.

## Analysis

` + findingsSection + sourcesSection

const surveyTemplate = `# Survey: {{.Title}}

**Research question:** {{.Query}}

## Scope

A broad survey of the topic. Each section covers one facet of the
landscape.

## Landscape

` + findingsSection + sourcesSection

const tutorialTemplate = `# Tutorial: {{.Title}}

**Research question:** {{.Query}}

## Before You Start

The sections below walk through the topic step by step, in the order
the research plan addressed them.

## Steps

` + findingsSection + sourcesSection

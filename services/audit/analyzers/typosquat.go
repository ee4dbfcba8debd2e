// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzers

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/depscope/services/audit/risk"
)

// similarityThreshold is the minimum name similarity that counts as a
// typosquat candidate. Exclusive: a score of exactly 0.8 does not fire.
const similarityThreshold = 0.8

// popularPackages is the reference list of npm names commonly targeted
// by typosquatters: top-download packages, major frameworks, build and
// test tooling, and historical attack targets.
var popularPackages = []string{
	"lodash", "react", "react-dom", "express", "axios", "typescript",
	"webpack", "next", "vue", "angular", "moment", "jquery",
	"chalk", "commander", "debug", "request", "async", "bluebird",

	"svelte", "nuxt", "gatsby", "redux", "mobx", "rxjs",
	"passport", "socket.io", "ws", "cors", "helmet", "morgan",

	"jest", "mocha", "chai", "jasmine", "karma", "ava",
	"eslint", "prettier", "babel", "rollup", "parcel", "vite",
	"esbuild", "gulp", "grunt", "webpack-cli", "nodemon",

	"@types/node", "@types/react", "@types/express", "@types/jest",

	"@angular/core", "@angular/common", "@angular/router",
	"@angular/forms", "@angular/http", "@angular/platform-browser",

	"@babel/core", "@babel/preset-env", "@babel/preset-react",
	"@babel/preset-typescript", "@babel/plugin-transform-runtime",

	"react-router", "react-router-dom", "prop-types", "classnames",
	"react-scripts", "create-react-app", "styled-components",

	"dotenv", "fs-extra", "path", "util", "url", "querystring",
	"body-parser", "cookie-parser", "multer", "busboy",

	"mongoose", "sequelize", "typeorm", "prisma", "knex",
	"pg", "mysql", "redis", "mongodb", "sqlite3",

	"jsonwebtoken", "bcrypt", "bcryptjs", "passport-local",
	"passport-jwt", "express-session", "connect-redis",

	"node-fetch", "got", "superagent", "http-proxy",
	"http-server", "serve", "express-static",

	"dayjs", "date-fns", "luxon", "moment-timezone",

	"joi", "yup", "ajv", "validator", "class-validator",

	// Historical attack targets.
	"event-stream", "ua-parser-js", "colors", "faker", "node-ipc",
	"is-promise", "flatmap-stream", "getcookies", "crossenv",
}

// normalizeName prepares a package name for comparison: lowercase,
// scope prefix stripped, underscores folded to hyphens.
func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if strings.HasPrefix(n, "@") {
		if _, rest, ok := strings.Cut(n, "/"); ok {
			n = rest
		}
	}
	return strings.ReplaceAll(n, "_", "-")
}

// editDistance computes the optimal string alignment distance between
// a and b. Transposition of adjacent characters counts as one edit, so
// the classic swap typo ("lodahs") stays within distance 1 of its
// target.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := d[i-1][j] + 1
			ins := d[i][j-1] + 1
			sub := d[i-1][j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if tr := d[i-2][j-2] + 1; tr < min {
					min = tr
				}
			}
			d[i][j] = min
		}
	}
	return d[la][lb]
}

// similarity maps edit distance into [0,1]: 1 is identical, 0 shares
// nothing.
func similarity(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(editDistance(a, b))/float64(maxLen)
}

// analyzeTyposquat flags names suspiciously close to a popular package.
//
// An exact match against the reference list is never a finding. When
// several reference names clear the threshold, only the single best
// match is reported.
func analyzeTyposquat(in Input) []risk.Finding {
	name := normalizeName(in.PackageName)

	bestScore := 0.0
	bestMatch := ""
	for _, popular := range popularPackages {
		target := normalizeName(popular)
		if name == target {
			return nil
		}
		if s := similarity(name, target); s > bestScore {
			bestScore = s
			bestMatch = popular
		}
	}

	if bestScore <= similarityThreshold {
		return nil
	}

	return []risk.Finding{{
		Name:        "typosquat",
		Severity:    risk.SeverityHigh,
		Category:    risk.CategoryAuthenticity,
		Description: fmt.Sprintf("package name is %d%% similar to popular package %q", int(bestScore*100), bestMatch),
		Evidence:    bestMatch,
	}}
}

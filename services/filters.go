package services

import (
	"strconv"
	"time"
)

// filterRegions is the set of selectable region filter values. 전국
// means central-government programs; everything else is a province or
// metropolitan city.
var filterRegions = []string{
	"전국", "서울", "부산", "대구", "인천", "광주", "대전", "울산", "세종",
	"경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
}

// regionAliases maps short province names to the long forms that appear
// in upstream organization names (충북 → 충청북도 etc.), used when
// excluding other regions' programs from a filtered listing.
var regionAliases = map[string][]string{
	"충북": {"충청북"},
	"충남": {"충청남"},
	"전북": {"전라북"},
	"전남": {"전라남"},
	"경북": {"경상북"},
	"경남": {"경상남"},
	"강원": {"강원"},
}

// categoryKeywords expands a display category into the ministry and
// topic keywords matched against the hosting organization name.
var categoryKeywords = map[string][]string{
	"일자리/창업": {
		"고용노동부", "고용센터", "고용",
		"중소벤처기업부", "중소기업", "소상공인", "창업",
		"산업통상", "일자리", "취업", "직업",
		"인력개발원", "경제진흥", "일자리센터",
	},
	"복지/보건": {
		"보건복지부", "복지", "보건소", "보건",
		"국가보훈부", "보훈", "유공자",
		"질병관리청", "의료", "건강",
		"사회복지", "복지관", "복지센터",
		"국민연금", "건강보험", "요양",
	},
	"농림/수산": {
		"농림축산식품부", "농림", "농업", "축산",
		"해양수산부", "수산", "해양", "어업",
		"산림청", "산림", "임업",
		"농촌", "귀농", "귀촌", "영농",
		"농업기술센터", "농업기술원",
	},
	"교육": {
		"교육부", "교육청", "교육",
		"장학", "학교", "대학",
		"평생교육", "직업훈련", "훈련원",
		"학생", "청소년", "유아교육",
	},
	"가족/여성": {
		"성평등가족부", "여성가족부", "가족",
		"여성", "아동", "양육", "보육",
		"어린이집", "유치원", "다문화",
		"한부모", "가정", "출산", "임신",
	},
	"환경/에너지": {
		"기후에너지환경부", "환경부", "환경",
		"에너지", "기후", "녹색",
		"신재생", "태양광", "전기차",
		"탄소", "친환경", "재활용",
	},
	"문화/체육": {
		"문화체육관광부", "문화", "예술",
		"국가유산청", "문화재", "유산",
		"체육", "스포츠", "관광",
		"도서관", "박물관", "미술관",
	},
	"주거/국토": {
		"국토교통부", "주거", "주택",
		"한국주택금융공사", "LH", "임대",
		"전세", "월세", "청약",
		"교통", "도로", "건축",
	},
	"행정/안전": {
		"행정안전부", "행정", "안전",
		"경찰청", "법무부", "대검찰청",
		"소방", "재난", "민방위",
		"자치", "법률", "권익",
	},
	"국방/보훈": {
		"국방부", "방위사업청", "국방",
		"군인", "제대군인", "병역",
		"보훈", "참전", "유공자",
	},
	"과학/기술": {
		"과학기술정보통신부", "과학", "기술",
		"지식재산처", "연구", "개발",
		"정보통신", "ICT", "AI", "디지털",
		"특허", "발명",
	},
	"지역생활": {
		"시청", "군청", "구청",
		"주민센터", "동사무소", "읍면동",
		"지역", "마을", "생활",
	},
	"기타": {},
}

// statusKeywords expands a life-situation filter into the keywords
// matched against the support target text.
var statusKeywords = map[string][]string{
	"학생":   {"학생", "대학생", "학교", "장학"},
	"구직자":  {"구직", "취업", "미취업", "실업"},
	"근로자":  {"근로자", "직장인", "재직자"},
	"소상공인": {"소상공인", "자영업", "상인"},
	"농어민":  {"농업", "어업", "농민", "귀농"},
	"저소득층": {"저소득", "기초생활", "차상위", "생계급여"},
	"임신출산": {"임신", "출산", "육아", "난임", "양육"},
	"장애인":  {"장애인", "재활"},
	"보훈대상": {"보훈", "유공자"},
	"다문화":  {"다문화", "외국인"},
}

// KeywordsForCategory returns the matching keywords for a display
// category, or nil for 전체 and unknown categories.
func KeywordsForCategory(category string) []string {
	if category == "" || category == "전체" {
		return nil
	}
	return categoryKeywords[category]
}

// AgeKeywordsForBirthYear converts a birth year into the Korean age
// (counting the birth year as 1) and returns target keywords for the
// matching age band. The exact "N세" string is always included.
func AgeKeywordsForBirthYear(birthYearText string) []string {
	birthYear, err := strconv.Atoi(birthYearText)
	if err != nil {
		return nil
	}

	age := time.Now().Year() - birthYear + 1
	keywords := []string{strconv.Itoa(age) + "세"}

	switch {
	case age >= 19 && age <= 34:
		keywords = append(keywords, "청년", "대학생", "20대", "30대")
	case age >= 65:
		keywords = append(keywords, "노인", "어르신", "65세", "고령자")
	case age < 19:
		keywords = append(keywords, "아동", "청소년", "학생", "영유아")
	case age >= 40:
		keywords = append(keywords, "중장년", "40대", "50대")
	}

	return keywords
}

// GenderKeywords returns target keywords for a gender filter value.
// 전국민 is always included so universal programs survive the filter.
func GenderKeywords(gender string) []string {
	switch gender {
	case "여자":
		return []string{"여성", "임신", "출산", "모성", "전국민"}
	case "남자":
		return []string{"남성", "군인", "전국민"}
	default:
		return nil
	}
}

// StatusKeywords returns target keywords for a life-situation filter
// value, or nil for 전체 and unknown values.
func StatusKeywords(status string) []string {
	if status == "" || status == "전체" {
		return nil
	}
	return statusKeywords[status]
}

// excludeKeywordsForRegion lists the region names (and their long
// aliases) of every region other than the selected one, used to keep
// other provinces' programs out of a region-filtered listing.
func excludeKeywordsForRegion(region string) []string {
	var keywords []string
	for _, other := range filterRegions {
		if other == "전국" || other == region {
			continue
		}
		keywords = append(keywords, other)
		keywords = append(keywords, regionAliases[other]...)
	}
	return keywords
}

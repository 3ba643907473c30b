package world

// Published rate tables for the 2014 base year. Keys are ages except for the
// tax schedule, which is keyed by taxable income in base-year dollars.

// Minimum RRIF withdrawal as a fraction of the start-of-year balance.
var minWithdrawalFraction = []Point{
	{70, 0}, {71, 0.0528}, {72, 0.0540}, {73, 0.0553},
	{74, 0.0567}, {75, 0.0582}, {76, 0.0598}, {77, 0.0617},
	{78, 0.0636}, {79, 0.0658}, {80, 0.0682}, {81, 0.0708},
	{82, 0.0738}, {83, 0.0771}, {84, 0.0808}, {85, 0.0851},
	{86, 0.0899}, {87, 0.0955}, {88, 0.1021}, {89, 0.1099},
	{90, 0.1192}, {91, 0.1306}, {92, 0.1449}, {93, 0.1634},
	{94, 0.1879}, {95, 0.2000},
}

// Annual probability of death by age.
var maleMortality = []Point{
	{0, 0.00577}, {1, 0.00035}, {2, 0.00021}, {3, 0.00021},
	{4, 0.00020}, {5, 0.00017}, {6, 0.00013}, {7, 0.00009},
	{8, 0.00008}, {9, 0.00008}, {10, 0.00010}, {11, 0.00010},
	{12, 0.00015}, {13, 0.00023}, {14, 0.00034}, {15, 0.00046},
	{16, 0.00057}, {17, 0.00066}, {18, 0.00072}, {19, 0.00078},
	{20, 0.00082}, {21, 0.00085}, {22, 0.00087}, {23, 0.00087},
	{24, 0.00085}, {25, 0.00083}, {26, 0.00081}, {27, 0.00080},
	{28, 0.00082}, {29, 0.00084}, {30, 0.00088}, {31, 0.00091},
	{32, 0.00096}, {33, 0.00100}, {34, 0.00105}, {35, 0.00110},
	{36, 0.00116}, {37, 0.00123}, {38, 0.00132}, {39, 0.00141},
	{40, 0.00152}, {41, 0.00164}, {42, 0.00178}, {43, 0.00195},
	{44, 0.00213}, {45, 0.00233}, {46, 0.00255}, {47, 0.00279},
	{48, 0.00304}, {49, 0.00331}, {50, 0.00360}, {51, 0.00394},
	{52, 0.00434}, {53, 0.00481}, {54, 0.00533}, {55, 0.00590},
	{56, 0.00654}, {57, 0.00726}, {58, 0.00805}, {59, 0.00890},
	{60, 0.00982}, {61, 0.01085}, {62, 0.01198}, {63, 0.01321},
	{64, 0.01451}, {65, 0.01593}, {66, 0.01752}, {67, 0.01930},
	{68, 0.02124}, {69, 0.02329}, {70, 0.02555}, {71, 0.02810},
	{72, 0.03104}, {73, 0.03429}, {74, 0.03779}, {75, 0.04165},
	{76, 0.04599}, {77, 0.05091}, {78, 0.05631}, {79, 0.06210},
	{80, 0.06846}, {81, 0.07555}, {82, 0.08353}, {83, 0.09214},
	{84, 0.10129}, {85, 0.11135}, {86, 0.12268}, {87, 0.13566},
	{88, 0.15005}, {89, 0.16558}, {90, 0.18264}, {91, 0.20160},
	{92, 0.22283}, {93, 0.22086}, {94, 0.23867}, {95, 0.25754},
	{96, 0.27751}, {97, 0.29858}, {98, 0.32077}, {99, 0.34406},
	{100, 0.36846}, {101, 0.39396}, {102, 0.42053}, {103, 0.44815},
	{104, 0.47678}, {105, 0.50637}, {106, 0.53687}, {107, 0.56822},
	{108, 0.60036}, {109, 0.63320}, {110, 1.0},
}

var femaleMortality = []Point{
	{0, 0.00467}, {1, 0.00035}, {2, 0.00020}, {3, 0.00015},
	{4, 0.00012}, {5, 0.00010}, {6, 0.00008}, {7, 0.00007},
	{8, 0.00007}, {9, 0.00007}, {10, 0.00009}, {11, 0.00009},
	{12, 0.00013}, {13, 0.00016}, {14, 0.00020}, {15, 0.00024},
	{16, 0.00028}, {17, 0.00031}, {18, 0.00033}, {19, 0.00034},
	{20, 0.00034}, {21, 0.00034}, {22, 0.00034}, {23, 0.00033},
	{24, 0.00033}, {25, 0.00033}, {26, 0.00033}, {27, 0.00033},
	{28, 0.00035}, {29, 0.00037}, {30, 0.00039}, {31, 0.00042},
	{32, 0.00046}, {33, 0.00050}, {34, 0.00055}, {35, 0.00061},
	{36, 0.00067}, {37, 0.00073}, {38, 0.00079}, {39, 0.00085},
	{40, 0.00092}, {41, 0.00099}, {42, 0.00109}, {43, 0.00120},
	{44, 0.00132}, {45, 0.00145}, {46, 0.00160}, {47, 0.00176},
	{48, 0.00193}, {49, 0.00210}, {50, 0.00229}, {51, 0.00251},
	{52, 0.00276}, {53, 0.00305}, {54, 0.00337}, {55, 0.00372},
	{56, 0.00410}, {57, 0.00451}, {58, 0.00494}, {59, 0.00538},
	{60, 0.00587}, {61, 0.00641}, {62, 0.00704}, {63, 0.00774},
	{64, 0.00850}, {65, 0.00933}, {66, 0.01026}, {67, 0.01131},
	{68, 0.01243}, {69, 0.01362}, {70, 0.01493}, {71, 0.01645},
	{72, 0.01823}, {73, 0.02019}, {74, 0.02230}, {75, 0.02467},
	{76, 0.02742}, {77, 0.03066}, {78, 0.03424}, {79, 0.03807},
	{80, 0.04240}, {81, 0.04748}, {82, 0.05354}, {83, 0.06068},
	{84, 0.06872}, {85, 0.07755}, {86, 0.08703}, {87, 0.09704},
	{88, 0.10767}, {89, 0.11899}, {90, 0.13088}, {91, 0.14322},
	{92, 0.15588}, {93, 0.17087}, {94, 0.18680}, {95, 0.20376},
	{96, 0.22177}, {97, 0.24083}, {98, 0.26094}, {99, 0.28209},
	{100, 0.30425}, {101, 0.32740}, {102, 0.35151}, {103, 0.37651},
	{104, 0.40237}, {105, 0.42902}, {106, 0.45638}, {107, 0.48439},
	{108, 0.51296}, {109, 0.54200}, {110, 1.0},
}

// Fraction of the remaining balance consumed each year under the
// constant-expected-drawdown rule.
var cedProportion = []Point{
	{60, 0.05438}, {61, 0.05460}, {62, 0.05484}, {63, 0.05509},
	{64, 0.05536}, {65, 0.05564}, {66, 0.05594}, {67, 0.05626},
	{68, 0.05661}, {69, 0.05697}, {70, 0.05736}, {71, 0.05778},
	{72, 0.05823}, {73, 0.05870}, {74, 0.05921}, {75, 0.05976},
	{76, 0.06035}, {77, 0.06098}, {78, 0.06166}, {79, 0.06239},
	{80, 0.06318}, {81, 0.06404}, {82, 0.06496}, {83, 0.06597},
	{84, 0.06706}, {85, 0.06825}, {86, 0.06955}, {87, 0.07097},
	{88, 0.07253}, {89, 0.07425}, {90, 0.07616}, {91, 0.07827},
	{92, 0.08063}, {93, 0.08327}, {94, 0.08624}, {95, 0.08962},
	{96, 0.09347}, {97, 0.09789}, {98, 0.10304}, {99, 0.10907},
	{100, 0.11624}, {101, 0.12488}, {102, 0.13549}, {103, 0.14881},
	{104, 0.16600}, {105, 0.18898}, {106, 0.22125}, {107, 0.26976},
	{108, 0.35075}, {109, 0.51296}, {110, 1.00000},
}

// Basic federal tax by taxable income.
var federalTaxSchedule = []Point{
	{0, 0}, {43953, 6593},
	{87907, 16263}, {136270, 28837},
	{1136270, 318837}, {10136270, 2928837},
}
